package service_test

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/config"
	"github.com/spec-kit/tour-service/internal/mail"
)

// recordingMailer captures outbound messages and can be told to fail.
type recordingMailer struct {
	sent    []mail.Message
	failing bool
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.failing {
		return errors.New("smtp connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{
			Env:           "test",
			PublicBaseURL: "http://test.local",
		},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 10,
			BcryptCost:              bcrypt.MinCost,
		},
	}
}

func testHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

// extractResetSecret pulls the raw reset secret out of a delivered email body.
func extractResetSecret(body string) string {
	_, after, found := strings.Cut(body, "/resetPassword/")
	if !found {
		return ""
	}
	if idx := strings.IndexAny(after, " \n\r\t"); idx >= 0 {
		return after[:idx]
	}
	return after
}

package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/spec-kit/tour-service/internal/config"
)

// Message is an outbound plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a message to an address. Delivery is synchronous and has no
// internal retry; a failure must reach the caller so it can roll back any
// state tied to the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer builds a mailer for the configured relay.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
	}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, msg.To, msg.Subject, msg.Body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds the development sender.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("outbound email (log mailer)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// New picks the SMTP mailer when a relay host is configured, otherwise the
// log-only sender.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		logger.Warn("MAIL_HOST not provided; emails will be logged, not sent")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

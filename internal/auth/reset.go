package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const resetSecretBytes = 32

// ResetToken is the result of generating a password-reset secret. Raw is
// delivered to the account holder exactly once; only Digest is persisted.
type ResetToken struct {
	Raw       string
	Digest    string
	ExpiresAt time.Time
}

// ResetTokenManager creates and verifies single-use, time-boxed reset
// secrets. The secret is already high-entropy, so it is digested with a fast
// hash rather than bcrypt; it has to be cheap to check on every presentation.
type ResetTokenManager struct {
	ttl time.Duration
	now func() time.Time
}

// NewResetTokenManager builds a manager with the configured validity window.
func NewResetTokenManager(ttlMinutes int) *ResetTokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 10
	}
	return &ResetTokenManager{
		ttl: time.Duration(ttlMinutes) * time.Minute,
		now: time.Now,
	}
}

// Generate draws a fresh random secret and returns it alongside the digest
// and expiry to persist.
func (rm *ResetTokenManager) Generate() (ResetToken, error) {
	buf := make([]byte, resetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}
	raw := hex.EncodeToString(buf)
	return ResetToken{
		Raw:       raw,
		Digest:    HashResetToken(raw),
		ExpiresAt: rm.now().Add(rm.ttl),
	}, nil
}

// Verify reports whether the presented secret matches the stored digest and
// the window is still open. Wrong and expired collapse into one outcome so
// the response cannot be used as an oracle.
func (rm *ResetTokenManager) Verify(raw, digest string, expiresAt time.Time) bool {
	if !rm.now().Before(expiresAt) {
		return false
	}
	presented := HashResetToken(raw)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(digest)) == 1
}

// Now exposes the manager's clock so callers share its notion of expiry.
func (rm *ResetTokenManager) Now() time.Time {
	return rm.now()
}

// HashResetToken returns the hex sha256 digest of a raw reset secret.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

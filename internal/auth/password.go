package auth

import "golang.org/x/crypto/bcrypt"

// maxConcurrentHashes bounds the number of bcrypt computations running at
// once. A hash at cost 12 burns tens of milliseconds of CPU; without a bound
// a login burst can starve every other request.
const maxConcurrentHashes = 8

// PasswordHasher applies a salted one-way function with a fixed cost factor.
type PasswordHasher struct {
	cost int
	sem  chan struct{}
}

// NewPasswordHasher builds a hasher with the configured bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrentHashes),
	}
}

// Hash returns the bcrypt digest of the plaintext. It fails only on
// underlying resource errors, never on the password's content.
func (h *PasswordHasher) Hash(password string) (string, error) {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare reports whether the plaintext matches the digest. Mismatch is not
// an error; the comparison inside bcrypt is constant-time.
func (h *PasswordHasher) Compare(digest, password string) bool {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

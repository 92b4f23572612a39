package security

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes dashboard account passwords with bcrypt. A cost of
// zero or less falls back to bcrypt.DefaultCost; tests pass a low cost to
// keep signup fixtures fast.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of a plaintext password.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares a plaintext candidate against a stored hash.
func (h *PasswordHasher) Verify(plain, hashed string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

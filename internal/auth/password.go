package auth

import "golang.org/x/crypto/bcrypt"

// CheckPassword reports whether plain matches the stored bcrypt hash.
// An empty or malformed hash never matches.
func CheckPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPassword produces a bcrypt hash for provisioning accounts. Costs below
// bcrypt.MinCost fall back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

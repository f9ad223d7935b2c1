package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted bcrypt digest of the plaintext using the
// library default cost. The cost is intentionally not configurable: lowering
// it to speed up tests or development weakens every stored credential.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether the plaintext matches the stored digest.
func CheckPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

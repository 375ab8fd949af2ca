package crypto

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor for researcher account passwords.
// Logins happen once per agent deployment, so the cost can sit above the
// library default without hurting interactive use.
const passwordCost = bcrypt.DefaultCost + 2

// HashPassword derives a storable bcrypt hash from a plaintext password.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
}

// ComparePassword reports, via its error, whether plain matches the stored
// hash. A nil error means a match.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}

package ports

// PasswordHasher hashes and verifies passwords at the service boundary.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare returns nil when the password matches the stored hash.
	Compare(hash, password string) error
}

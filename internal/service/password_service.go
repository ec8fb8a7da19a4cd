package service

type PasswordService interface {
	Hash(password, salt string, iterations int) (string, error)
	Verify(password, salt string, iterations int, expectedHash string) bool
	// NewCredential hashes password with a fresh salt at the current policy.
	NewCredential(password string) (hash, salt string, iterations int, err error)
	NeedsRehash(iterations int) bool
}

package auth

import (
	"sync"

	"github.com/alexedwards/argon2id"
)

var DefaultPasswordParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, DefaultPasswordParams)
}

func ComparePassword(password, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// CompareDummy burns the same time as a real comparison. Login calls it for
// unknown emails so response timing does not reveal which accounts exist.
func CompareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("gophmail-dummy-password")
	})
	if dummyHash != "" {
		_, _ = ComparePassword(password, dummyHash)
	}
}

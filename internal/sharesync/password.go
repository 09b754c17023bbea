package sharesync

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// passwordSalt is fixed: every client must derive the same hash from the same
// password, since verification happens locally against the stored hash.
var passwordSalt = []byte("travplanner.share.v1")

const (
	passwordIterations = 100_000
	passwordKeyLen     = 32
)

// HashPassword derives the share password hash stored in a share document and
// cached by clients. It is deterministic.
func HashPassword(password string) string {
	key := pbkdf2.Key([]byte(password), passwordSalt, passwordIterations, passwordKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

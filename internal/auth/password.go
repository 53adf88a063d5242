package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const djangoPBKDF2 = "pbkdf2_sha256"

var ErrUnsupportedHash = errors.New("unsupported password hash")

// CheckPassword verifies password against a Django encoded hash of the
// form pbkdf2_sha256$<iterations>$<salt>$<base64 digest>.
func CheckPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != djangoPBKDF2 {
		return false, ErrUnsupportedHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, fmt.Errorf("%w: bad iteration count %q", ErrUnsupportedHash, parts[1])
	}

	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}

	got := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// HashPassword encodes password the way Django stores it.
func HashPassword(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", djangoPBKDF2, iterations, salt, base64.StdEncoding.EncodeToString(key))
}

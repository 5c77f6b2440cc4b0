package accounts

import (
	"crypto/rand"
	"encoding/hex"
)

const lifecycleTokenBytes = 32

// Lifecycle token kinds, used as metric labels.
const (
	TokenVerify = "verify"
	TokenReset  = "reset"
)

// newLifecycleToken returns 32 random bytes, hex encoded.
func newLifecycleToken() (string, error) {
	buf := make([]byte, lifecycleTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

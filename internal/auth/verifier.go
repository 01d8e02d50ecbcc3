package auth

import (
	"crypto/sha256"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/anstrom/portsweep/internal/errors"
)

// KeyVerifier checks presented API keys against a fixed set of bcrypt
// hashes. Successful matches are remembered by the SHA-256 of the key so
// that repeat requests skip the bcrypt comparison.
type KeyVerifier struct {
	hashes []string

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewKeyVerifier validates hashes and returns a verifier for them.
func NewKeyVerifier(hashes []string) (*KeyVerifier, error) {
	clean := make([]string, 0, len(hashes))
	for _, h := range hashes {
		h = strings.TrimSpace(h)
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, errors.NewConfigFieldError(errors.CodeConfiguration,
				"api key entry is not a bcrypt hash", "api.api_keys", nil)
		}
		clean = append(clean, h)
	}
	return &KeyVerifier{
		hashes:   clean,
		verified: make(map[[sha256.Size]byte]struct{}),
	}, nil
}

// Verify reports whether key matches one of the configured hashes.
func (v *KeyVerifier) Verify(key string) bool {
	if !IsValidAPIKeyFormat(key) {
		return false
	}

	digest := sha256.Sum256([]byte(key))
	v.mu.RLock()
	_, ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return true
	}

	for _, h := range v.hashes {
		if ValidateAPIKey(key, h) {
			v.mu.Lock()
			v.verified[digest] = struct{}{}
			v.mu.Unlock()
			return true
		}
	}
	return false
}

// Len returns the number of configured keys.
func (v *KeyVerifier) Len() int { return len(v.hashes) }

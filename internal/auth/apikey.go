// Package auth provides API key generation and verification for the
// portsweep API server. Keys are random strings shown once at creation;
// only their bcrypt hashes are stored in the configuration file.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/anstrom/portsweep/internal/errors"
)

// API key generation and validation constants
const (
	// APIKeyLength is the length of the random part of an API key
	APIKeyLength = 32
	// APIKeyPrefix is the standard prefix for all API keys
	APIKeyPrefix = "ps"
	// DisplayPrefixLength is the number of random characters shown in logs
	DisplayPrefixLength = 8

	// BcryptCost is the bcrypt cost for hashing API keys
	BcryptCost = 12
	// BcryptMaxInputLength is the maximum input length for bcrypt (72 bytes)
	BcryptMaxInputLength = 72

	// MaxAPIKeyNameLength is the maximum length for API key names
	MaxAPIKeyNameLength = 255
)

// hashCost is lowered by tests.
var hashCost = BcryptCost

// GeneratedAPIKey contains a newly generated API key and its hash
type GeneratedAPIKey struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"` // only shown once
	Hash      string    `json:"hash"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateAPIKey creates a new API key with the specified name
func GenerateAPIKey(name string) (*GeneratedAPIKey, error) {
	if err := validateKeyName(name); err != nil {
		return nil, err
	}

	randomBytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	// base32 has no ambiguous characters
	randomPart := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes))
	randomPart = randomPart[:APIKeyLength]

	fullKey := fmt.Sprintf("%s_%s", APIKeyPrefix, randomPart)

	hash, err := HashAPIKey(fullKey)
	if err != nil {
		return nil, err
	}

	return &GeneratedAPIKey{
		Name:      name,
		Key:       fullKey,
		Hash:      hash,
		Prefix:    CreateDisplayPrefix(fullKey),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// HashAPIKey creates a bcrypt hash of an API key for secure storage
func HashAPIKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", errors.NewScanError(errors.CodeValidation, "API key cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword(preHash(apiKey), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

// ValidateAPIKey checks if a provided API key matches the stored hash
func ValidateAPIKey(apiKey, storedHash string) bool {
	if apiKey == "" || storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), preHash(apiKey)) == nil
}

// preHash folds keys longer than bcrypt's 72 byte limit through SHA-256.
func preHash(apiKey string) []byte {
	keyBytes := []byte(apiKey)
	if len(keyBytes) > BcryptMaxInputLength {
		sum := sha256.Sum256(keyBytes)
		keyBytes = sum[:]
	}
	return keyBytes
}

const (
	minAPIKeyLength = 15
	maxAPIKeyLength = 50
)

// IsValidAPIKeyFormat reports whether apiKey looks like a key this package
// generated: the ps_ prefix followed by letters, digits and underscores.
func IsValidAPIKeyFormat(apiKey string) bool {
	if len(apiKey) < minAPIKeyLength || len(apiKey) > maxAPIKeyLength {
		return false
	}
	rest, ok := strings.CutPrefix(apiKey, APIKeyPrefix+"_")
	if !ok {
		return false
	}
	return strings.IndexFunc(rest, func(r rune) bool {
		return r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9')
	}) < 0
}

// CreateDisplayPrefix creates a safe-to-display prefix from a full API key
func CreateDisplayPrefix(apiKey string) string {
	if !IsValidAPIKeyFormat(apiKey) {
		return "invalid_key"
	}

	prefix, random, _ := strings.Cut(apiKey, "_")
	if len(random) > DisplayPrefixLength {
		random = random[:DisplayPrefixLength]
	}
	return fmt.Sprintf("%s_%s...", prefix, random)
}

// validateKeyName validates the API key name
func validateKeyName(name string) error {
	if name == "" {
		return errors.NewScanError(errors.CodeValidation, "key name cannot be empty")
	}
	if len(name) > MaxAPIKeyNameLength {
		return errors.NewScanError(errors.CodeValidation,
			fmt.Sprintf("key name must be at most %d characters", MaxAPIKeyNameLength))
	}

	if strings.IndexFunc(name, unsafeNameRune) >= 0 {
		return errors.NewScanError(errors.CodeValidation, "key name contains invalid characters")
	}
	return nil
}

// unsafeNameRune rejects control characters and the bidi overrides and
// isolates that can disguise a name in terminal output.
func unsafeNameRune(r rune) bool {
	return unicode.IsControl(r) ||
		(r >= 0x202A && r <= 0x202E) ||
		(r >= 0x2066 && r <= 0x2069)
}

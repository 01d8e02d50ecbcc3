package auth

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anstrom/portsweep/internal/errors"
)

func TestMain(m *testing.M) {
	hashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestGenerateAPIKey(t *testing.T) {
	tests := []struct {
		name        string
		keyName     string
		expectError bool
		errorMsg    string
	}{
		{
			name:    "valid_name",
			keyName: "Test API Key",
		},
		{
			name:    "long_valid_name",
			keyName: strings.Repeat("A", 255),
		},
		{
			name:    "name_with_unicode",
			keyName: "Test Key 🔑",
		},
		{
			name:        "empty_name",
			keyName:     "",
			expectError: true,
			errorMsg:    "key name cannot be empty",
		},
		{
			name:        "too_long_name",
			keyName:     strings.Repeat("A", 256),
			expectError: true,
			errorMsg:    "key name must be at most 255 characters",
		},
		{
			name:        "name_with_control_chars",
			keyName:     "Test\x00Key",
			expectError: true,
			errorMsg:    "key name contains invalid characters",
		},
		{
			name:        "name_with_rtl_override",
			keyName:     "admin\u202eyek",
			expectError: true,
			errorMsg:    "key name contains invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generated, err := GenerateAPIKey(tt.keyName)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.True(t, errors.IsCode(err, errors.CodeValidation))
				assert.Nil(t, generated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.keyName, generated.Name)
			assert.True(t, strings.HasPrefix(generated.Key, "ps_"))
			assert.Len(t, generated.Key, len("ps_")+APIKeyLength)
			assert.True(t, IsValidAPIKeyFormat(generated.Key))
			assert.Equal(t, "ps_"+generated.Key[3:11]+"...", generated.Prefix)
			assert.True(t, ValidateAPIKey(generated.Key, generated.Hash))
			assert.False(t, generated.CreatedAt.IsZero())
		})
	}
}

func TestGenerateAPIKeyUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		generated, err := GenerateAPIKey("k")
		require.NoError(t, err)
		assert.False(t, seen[generated.Key], "duplicate key generated")
		seen[generated.Key] = true
	}
}

func TestHashAndValidateAPIKey(t *testing.T) {
	key := "ps_" + strings.Repeat("a", APIKeyLength)
	hash, err := HashAPIKey(key)
	require.NoError(t, err)
	assert.NotEqual(t, key, hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, ValidateAPIKey(key, hash))
	assert.False(t, ValidateAPIKey(key+"b", hash))
	assert.False(t, ValidateAPIKey("", hash))
	assert.False(t, ValidateAPIKey(key, ""))
	assert.False(t, ValidateAPIKey(key, "not-a-hash"))

	_, err = HashAPIKey("")
	assert.Error(t, err)
}

func TestHashAPIKeyLongInput(t *testing.T) {
	// Keys over bcrypt's 72 byte limit differing only past byte 72 must not collide.
	long := strings.Repeat("x", 80)
	hash, err := HashAPIKey(long + "1")
	require.NoError(t, err)
	assert.True(t, ValidateAPIKey(long+"1", hash))
	assert.False(t, ValidateAPIKey(long+"2", hash))
}

func TestIsValidAPIKeyFormat(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"ps_" + strings.Repeat("a", 32), true},
		{"ps_ABCdef123_456789", true},
		{"", false},
		{"sk_" + strings.Repeat("a", 32), false},
		{"ps_short", false},
		{"ps_" + strings.Repeat("a", 60), false},
		{"ps_abcdefgh-ijklmnop", false},
		{"ps_abcdefgh ijklmnop", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKeyFormat(tt.key))
		})
	}
}

func TestCreateDisplayPrefix(t *testing.T) {
	assert.Equal(t, "ps_abcdefgh...", CreateDisplayPrefix("ps_abcdefghijklmnopqrstuvwxyz234567"))
	assert.Equal(t, "invalid_key", CreateDisplayPrefix("garbage"))
	assert.Equal(t, "invalid_key", CreateDisplayPrefix(""))
}

func TestKeyVerifier(t *testing.T) {
	a, err := GenerateAPIKey("a")
	require.NoError(t, err)
	b, err := GenerateAPIKey("b")
	require.NoError(t, err)

	v, err := NewKeyVerifier([]string{a.Hash, " " + b.Hash + "\n"})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	assert.True(t, v.Verify(a.Key))
	assert.True(t, v.Verify(b.Key))
	assert.True(t, v.Verify(a.Key), "cached match")
	assert.False(t, v.Verify("ps_"+strings.Repeat("z", APIKeyLength)))
	assert.False(t, v.Verify("not a key"))
}

func TestKeyVerifierRejectsPlaintext(t *testing.T) {
	_, err := NewKeyVerifier([]string{"ps_" + strings.Repeat("a", APIKeyLength)})
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api.api_keys", cfgErr.Field)
}

func TestKeyVerifierConcurrent(t *testing.T) {
	k, err := GenerateAPIKey("k")
	require.NoError(t, err)
	v, err := NewKeyVerifier([]string{k.Hash})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, v.Verify(k.Key))
		}()
	}
	wg.Wait()
}

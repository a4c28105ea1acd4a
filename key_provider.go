package credseal

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
)

// Key is a named master key. The key material is held encrypted in memory and is only
// exposed through Open for the duration of a single operation.
type Key struct {
	// ID identifies the key (e.g., "primary"). It is not secret and may appear in logs.
	ID string

	material *memguard.Enclave
}

// NewKey seals a copy of raw into a memguard enclave. raw must be 32 bytes for AES-256.
// The caller keeps ownership of raw and may zero it afterwards.
func NewKey(id string, raw []byte) (Key, error) {
	if id == "" {
		return Key{}, fmt.Errorf("%w: key ID must not be empty", ErrInvalidKeyID)
	}
	if len(raw) != aesKeySize {
		return Key{}, fmt.Errorf("%w: key %q has %d bytes, want %d", ErrInvalidKeyMaterial, id, len(raw), aesKeySize)
	}
	// NewEnclave wipes its source, so hand it a copy.
	b := make([]byte, aesKeySize)
	copy(b, raw)
	return Key{ID: id, material: memguard.NewEnclave(b)}, nil
}

// Open decrypts the key into a locked buffer. The caller must Destroy the buffer when done.
func (k Key) Open() (*memguard.LockedBuffer, error) {
	if k.material == nil {
		return nil, fmt.Errorf("%w: key %q holds no material", ErrInvalidKeyMaterial, k.ID)
	}
	buf, err := k.material.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open key %q: %v", ErrInvalidKeyMaterial, k.ID, err)
	}
	return buf, nil
}

// KeyProvider abstracts master key retrieval.
// Implementations must be safe for concurrent use.
type KeyProvider interface {
	// CurrentKey returns the key to use for new encryptions.
	CurrentKey() (Key, error)

	// Keys returns every key accepted when opening tokens, current key first.
	Keys() ([]Key, error)
}

// DecodeSecret decodes a standard base64 secret into raw AES-256 key bytes.
// Surrounding whitespace is ignored. The secret itself never appears in returned errors.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidKeyMaterial)
	}
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not valid base64", ErrInvalidKeyMaterial)
	}
	if len(raw) != aesKeySize {
		clear(raw)
		return nil, fmt.Errorf("%w: secret decodes to %d bytes, want %d", ErrInvalidKeyMaterial, len(raw), aesKeySize)
	}
	return raw, nil
}

// EncodeSecret returns the configuration form of raw key bytes.
func EncodeSecret(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

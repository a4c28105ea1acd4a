// Package vault builds a credseal key provider from master keys encrypted with the
// HashiCorp Vault Transit secrets engine.
//
// Transit returns plaintext as base64. The Client is expected to return decoded bytes;
// WithEncryptedSecret handles keys that were stored as credseal secret text instead.
//
// Usage:
//
//	keys, err := vault.New(ctx, transitClient,
//	    vault.WithEncryptedKey("vault:v1:...", "primary", "credseal"),
//	)
//	sealer, err := credseal.NewSealer(keys)
package vault

import (
	"context"
	"fmt"

	"github.com/rbaliyan/credseal"
)

// Client abstracts the Transit decrypt operation so any Vault client library can be used.
type Client interface {
	// TransitDecrypt decrypts a "vault:v<n>:..." ciphertext with the named Transit key
	// and returns the plaintext bytes.
	TransitDecrypt(ctx context.Context, keyName string, ciphertext string) ([]byte, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	encrypted []encryptedKey
}

type encryptedKey struct {
	ciphertext     string
	id             string
	transitKeyName string
	secretText     bool
}

// WithEncryptedKey adds a Transit ciphertext whose plaintext is the raw 32-byte master key.
// The first key added is current; later keys only open existing tokens.
func WithEncryptedKey(ciphertext, id, transitKeyName string) Option {
	return func(o *options) {
		o.encrypted = append(o.encrypted, encryptedKey{
			ciphertext:     ciphertext,
			id:             id,
			transitKeyName: transitKeyName,
		})
	}
}

// WithEncryptedSecret is like WithEncryptedKey for a plaintext holding a base64 secret,
// as produced by "credseal keygen".
func WithEncryptedSecret(ciphertext, id, transitKeyName string) Option {
	return func(o *options) {
		o.encrypted = append(o.encrypted, encryptedKey{
			ciphertext:     ciphertext,
			id:             id,
			transitKeyName: transitKeyName,
			secretText:     true,
		})
	}
}

// New decrypts every configured key through Transit and returns a provider holding them.
func New(ctx context.Context, client Client, opts ...Option) (*credseal.StaticKeyProvider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.encrypted) == 0 {
		return nil, fmt.Errorf("vault: at least one encrypted key is required")
	}

	raw := make([]credseal.RawKey, 0, len(o.encrypted))
	for _, ek := range o.encrypted {
		key, err := decryptKey(ctx, client, ek)
		if err != nil {
			for _, k := range raw {
				clear(k.Bytes)
			}
			return nil, err
		}
		raw = append(raw, credseal.RawKey{ID: ek.id, Bytes: key})
	}

	provider, err := credseal.NewKeyProviderFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return provider, nil
}

func decryptKey(ctx context.Context, client Client, ek encryptedKey) ([]byte, error) {
	plaintext, err := client.TransitDecrypt(ctx, ek.transitKeyName, ek.ciphertext)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to decrypt key %q: %w", ek.id, err)
	}
	if !ek.secretText {
		return plaintext, nil
	}

	defer clear(plaintext)
	key, err := credseal.DecodeSecret(string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("vault: key %q: %w", ek.id, err)
	}
	return key, nil
}

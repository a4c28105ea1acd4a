package credseal

import (
	"fmt"
	"io"
)

// Encrypt seals plaintext under key with AES-256-GCM, a fresh random nonce and no
// associated data, using the standard library provider.
func Encrypt(plaintext, key []byte) (Envelope, error) {
	p, ok := defaultPlatform.Provider()
	if !ok {
		return Envelope{}, ErrEnvironmentUnsupported
	}
	return encrypt(p, plaintext, key)
}

// encrypt seals plaintext with the given provider.
// The AEAD output is split so the trailing 16 bytes become the tag.
func encrypt(p Provider, plaintext, key []byte) (Envelope, error) {
	if len(key) != aesKeySize {
		return Envelope{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyMaterial, len(key))
	}

	aead, err := p.NewAEAD(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: failed to create AEAD: %v", ErrEncryptionFailure, err)
	}
	if aead.NonceSize() != gcmNonceSize || aead.Overhead() != gcmTagSize {
		return Envelope{}, fmt.Errorf("%w: unexpected AEAD parameters (nonce %d, tag %d)",
			ErrEncryptionFailure, aead.NonceSize(), aead.Overhead())
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(p.Random(), nonce); err != nil {
		return Envelope{}, fmt.Errorf("%w: failed to generate nonce: %v", ErrEncryptionFailure, err)
	}

	out := aead.Seal(nil, nonce, plaintext, nil)
	if len(out) != len(plaintext)+gcmTagSize {
		return Envelope{}, fmt.Errorf("%w: sealed output has %d bytes", ErrEncryptionFailure, len(out))
	}
	split := len(out) - gcmTagSize

	return Envelope{
		Nonce:      nonce,
		Ciphertext: out[:split:split],
		Tag:        out[split:],
	}, nil
}

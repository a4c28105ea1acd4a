package credseal

import (
	"fmt"
)

// Decrypt verifies and decrypts an envelope under key.
// Any failure, including a wrong key or a single flipped bit, yields ErrAuthenticationFailure
// and no plaintext.
func Decrypt(env Envelope, key []byte) ([]byte, error) {
	return decrypt(systemProvider{}, env, key)
}

// Decode parses a token and decrypts it under key. It is the receiving side's counterpart
// of Encrypt followed by Envelope.Encode.
func Decode(token string, key []byte) ([]byte, error) {
	env, err := ParseEnvelope(token)
	if err != nil {
		return nil, err
	}
	return Decrypt(env, key)
}

func decrypt(p Provider, env Envelope, key []byte) ([]byte, error) {
	if len(key) != aesKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyMaterial, len(key))
	}
	if err := env.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}

	aead, err := p.NewAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.sealed(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: tag verification failed", ErrAuthenticationFailure)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

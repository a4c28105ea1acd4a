package credseal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"sync"
)

// Provider is a working cryptographic backend: a CSPRNG and an AES-256-GCM constructor.
type Provider interface {
	// Random returns a cryptographically secure source that is safe for concurrent use.
	Random() io.Reader

	// NewAEAD returns an AES-GCM AEAD keyed with key.
	NewAEAD(key []byte) (cipher.AEAD, error)
}

// Platform reports whether a cryptographic provider exists in the current environment.
// A false result is converted by Sealer into ErrEnvironmentUnsupported.
type Platform interface {
	Provider() (Provider, bool)
}

// SystemPlatform is the Platform backed by crypto/rand and crypto/aes.
// The random source is probed once, on first use.
type SystemPlatform struct {
	once sync.Once
	ok   bool
}

// Provider returns the standard library provider if the random source is readable.
func (p *SystemPlatform) Provider() (Provider, bool) {
	p.once.Do(func() {
		var probe [1]byte
		_, err := io.ReadFull(rand.Reader, probe[:])
		p.ok = err == nil
	})
	if !p.ok {
		return nil, false
	}
	return systemProvider{}, true
}

var defaultPlatform = &SystemPlatform{}

type systemProvider struct{}

func (systemProvider) Random() io.Reader {
	return rand.Reader
}

func (systemProvider) NewAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

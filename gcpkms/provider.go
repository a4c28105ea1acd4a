// Package gcpkms builds a credseal key provider from master keys encrypted with Google Cloud KMS.
//
// Requests carry CRC32C checksums and responses are verified against them, following the
// Cloud KMS data integrity guidelines.
//
// Usage:
//
//	client, err := kms.NewKeyManagementClient(ctx)
//	keys, err := gcpkms.New(ctx, client,
//	    gcpkms.WithEncryptedKey(ciphertext, "primary", resourceName),
//	)
//	sealer, err := credseal.NewSealer(keys)
package gcpkms

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/rbaliyan/credseal"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrIntegrity is returned when a Cloud KMS response fails checksum verification.
var ErrIntegrity = errors.New("gcpkms: response failed integrity check")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Client is the subset of the Cloud KMS API used by this package.
type Client interface {
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	encrypted []encryptedKey
}

type encryptedKey struct {
	ciphertext   []byte
	id           string
	resourceName string // projects/*/locations/*/keyRings/*/cryptoKeys/*
}

// WithEncryptedKey adds a master key encrypted under the CryptoKey resourceName.
// The first key added is current; later keys only open existing tokens.
func WithEncryptedKey(ciphertext []byte, id, resourceName string) Option {
	return func(o *options) {
		o.encrypted = append(o.encrypted, encryptedKey{
			ciphertext:   ciphertext,
			id:           id,
			resourceName: resourceName,
		})
	}
}

// New decrypts every configured key with Cloud KMS and returns a provider holding them.
func New(ctx context.Context, client Client, opts ...Option) (*credseal.StaticKeyProvider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.encrypted) == 0 {
		return nil, fmt.Errorf("gcpkms: at least one encrypted key is required")
	}

	raw := make([]credseal.RawKey, 0, len(o.encrypted))
	fail := func(err error) (*credseal.StaticKeyProvider, error) {
		for _, k := range raw {
			clear(k.Bytes)
		}
		return nil, err
	}

	for _, ek := range o.encrypted {
		resp, err := client.Decrypt(ctx, &kmspb.DecryptRequest{
			Name:             ek.resourceName,
			Ciphertext:       ek.ciphertext,
			CiphertextCrc32C: wrapperspb.Int64(checksum(ek.ciphertext)),
		})
		if err != nil {
			return fail(fmt.Errorf("gcpkms: failed to decrypt key %q: %w", ek.id, err))
		}
		if sum := resp.GetPlaintextCrc32C(); sum != nil && sum.GetValue() != checksum(resp.GetPlaintext()) {
			clear(resp.Plaintext)
			return fail(fmt.Errorf("%w: key %q", ErrIntegrity, ek.id))
		}
		raw = append(raw, credseal.RawKey{ID: ek.id, Bytes: resp.Plaintext})
	}

	provider, err := credseal.NewKeyProviderFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("gcpkms: %w", err)
	}
	return provider, nil
}

func checksum(b []byte) int64 {
	return int64(crc32.Checksum(b, castagnoli))
}

// Package azurekv builds a credseal key provider from master keys wrapped by Azure Key Vault.
//
// Usage:
//
//	cred, err := azidentity.NewDefaultAzureCredential(nil)
//	client, err := azkeys.NewClient("https://my-vault.vault.azure.net/", cred, nil)
//
//	keys, err := azurekv.New(ctx, client,
//	    azurekv.WithWrappedKey(wrapped, "primary", "credseal-master", ""),
//	)
//	sealer, err := credseal.NewSealer(keys)
package azurekv

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"github.com/rbaliyan/credseal"
)

// Client is the subset of the Key Vault keys API used by this package.
type Client interface {
	UnwrapKey(ctx context.Context, keyName string, keyVersion string, parameters azkeys.KeyOperationParameters, options *azkeys.UnwrapKeyOptions) (azkeys.UnwrapKeyResponse, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	wrapped []wrappedKey
}

type wrappedKey struct {
	value      []byte
	id         string
	vaultKey   string
	keyVersion string // empty selects the latest version
	algorithm  azkeys.EncryptionAlgorithm
}

// WithWrappedKey adds a master key wrapped by the Key Vault key vaultKey with RSA-OAEP-256.
// The first key added is current; later keys only open existing tokens.
func WithWrappedKey(value []byte, id, vaultKey, keyVersion string) Option {
	return WithWrappedKeyAlgorithm(value, id, vaultKey, keyVersion, azkeys.EncryptionAlgorithmRSAOAEP256)
}

// WithWrappedKeyAlgorithm is like WithWrappedKey with an explicit unwrap algorithm.
func WithWrappedKeyAlgorithm(value []byte, id, vaultKey, keyVersion string, alg azkeys.EncryptionAlgorithm) Option {
	return func(o *options) {
		o.wrapped = append(o.wrapped, wrappedKey{
			value:      value,
			id:         id,
			vaultKey:   vaultKey,
			keyVersion: keyVersion,
			algorithm:  alg,
		})
	}
}

// New unwraps every configured key with Key Vault and returns a provider holding them.
// The client is not retained.
func New(ctx context.Context, client Client, opts ...Option) (*credseal.StaticKeyProvider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.wrapped) == 0 {
		return nil, fmt.Errorf("azurekv: at least one wrapped key is required")
	}

	raw := make([]credseal.RawKey, 0, len(o.wrapped))
	for _, wk := range o.wrapped {
		alg := wk.algorithm
		resp, err := client.UnwrapKey(ctx, wk.vaultKey, wk.keyVersion, azkeys.KeyOperationParameters{
			Algorithm: &alg,
			Value:     wk.value,
		}, nil)
		if err != nil {
			for _, k := range raw {
				clear(k.Bytes)
			}
			return nil, fmt.Errorf("azurekv: failed to unwrap key %q: %w", wk.id, err)
		}
		raw = append(raw, credseal.RawKey{ID: wk.id, Bytes: resp.Result})
	}

	provider, err := credseal.NewKeyProviderFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("azurekv: %w", err)
	}
	return provider, nil
}

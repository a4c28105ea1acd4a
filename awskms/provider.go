// Package awskms builds a credseal key provider from master keys wrapped by AWS KMS.
//
// Wrapped keys are unwrapped once with KMS Decrypt at construction time and then held in
// memguard enclaves by the returned provider. The KMS client is not retained.
//
// Usage:
//
//	cfg, err := awsconfig.LoadDefaultConfig(ctx)
//	kmsClient := kms.NewFromConfig(cfg)
//
//	keys, err := awskms.New(ctx, kmsClient,
//	    awskms.WithWrappedKey(wrappedKeyBytes, "primary"),
//	)
//	sealer, err := credseal.NewSealer(keys)
package awskms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/rbaliyan/credseal"
)

// Client is the subset of the AWS KMS API used by this package.
type Client interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	wrapped []wrappedKey
}

type wrappedKey struct {
	blob     []byte
	id       string
	kmsKeyID string // ARN or alias; empty lets KMS read it from the blob
}

// WithWrappedKey adds a master key wrapped by KMS Encrypt or GenerateDataKey.
// The first key added is current; later keys are only used to open existing tokens.
func WithWrappedKey(blob []byte, id string) Option {
	return func(o *options) {
		o.wrapped = append(o.wrapped, wrappedKey{blob: blob, id: id})
	}
}

// WithWrappedKeyFor is like WithWrappedKey but pins the KMS key ARN or alias used to unwrap.
func WithWrappedKeyFor(blob []byte, id, kmsKeyID string) Option {
	return func(o *options) {
		o.wrapped = append(o.wrapped, wrappedKey{blob: blob, id: id, kmsKeyID: kmsKeyID})
	}
}

// New unwraps every configured key and returns a provider holding them.
// Unwrapped bytes are zeroed once sealed, and on any failure.
func New(ctx context.Context, client Client, opts ...Option) (*credseal.StaticKeyProvider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.wrapped) == 0 {
		return nil, fmt.Errorf("awskms: at least one wrapped key is required")
	}

	raw := make([]credseal.RawKey, 0, len(o.wrapped))
	for _, wk := range o.wrapped {
		input := &kms.DecryptInput{CiphertextBlob: wk.blob}
		if wk.kmsKeyID != "" {
			input.KeyId = &wk.kmsKeyID
		}

		out, err := client.Decrypt(ctx, input)
		if err != nil {
			wipe(raw)
			return nil, fmt.Errorf("awskms: failed to unwrap key %q: %w", wk.id, err)
		}
		raw = append(raw, credseal.RawKey{ID: wk.id, Bytes: out.Plaintext})
	}

	provider, err := credseal.NewKeyProviderFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("awskms: %w", err)
	}
	return provider, nil
}

func wipe(keys []credseal.RawKey) {
	for _, k := range keys {
		clear(k.Bytes)
	}
}

package credseal

import (
	"context"
	"fmt"

	"github.com/rbaliyan/config/codec"
)

// Codec wraps an inner codec with sealing.
// On Encode, the inner codec serializes the value and the result is sealed into a token.
// On Decode, the token is opened and the inner codec deserializes the plaintext.
//
// Encoded data is the ASCII token itself, so a sealed config value can be copied into a
// credential field unchanged.
type Codec struct {
	inner  codec.Codec
	sealer *Sealer
	name   string
}

// Compile-time interface check.
var _ codec.Codec = (*Codec)(nil)

// NewCodec creates a sealing codec that wraps the given inner codec.
// The codec name is "sealed:<inner>", e.g. "sealed:json".
// Returns an error if inner or sealer is nil.
func NewCodec(inner codec.Codec, sealer *Sealer) (*Codec, error) {
	if inner == nil {
		return nil, fmt.Errorf("credseal: NewCodec inner codec is nil")
	}
	if sealer == nil {
		return nil, fmt.Errorf("credseal: NewCodec sealer is nil")
	}
	return &Codec{
		inner:  inner,
		sealer: sealer,
		name:   "sealed:" + inner.Name(),
	}, nil
}

// Name returns the codec name, e.g. "sealed:json".
func (c *Codec) Name() string {
	return c.name
}

// Encode serializes the value using the inner codec, then seals the result.
func (c *Codec) Encode(v any) ([]byte, error) {
	plaintext, err := c.inner.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("credseal: inner encode failed: %w", err)
	}
	defer clear(plaintext)

	token, err := c.sealer.SealBytes(context.Background(), plaintext)
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

// Decode opens the token, then deserializes the plaintext using the inner codec.
func (c *Codec) Decode(data []byte, v any) error {
	plaintext, err := c.sealer.OpenBytes(context.Background(), string(data))
	if err != nil {
		return fmt.Errorf("credseal: open failed: %w", err)
	}
	defer clear(plaintext)

	if err := c.inner.Decode(plaintext, v); err != nil {
		return fmt.Errorf("credseal: inner decode failed: %w", err)
	}
	return nil
}

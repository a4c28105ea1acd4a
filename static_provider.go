package credseal

import (
	"fmt"
	"maps"
	"slices"
)

// DefaultKeyID is the ID given to the configured secret when Config.KeyID is empty.
const DefaultKeyID = "primary"

// StaticKeyProvider is a KeyProvider backed by in-memory keys.
// It is immutable after construction and safe for concurrent use.
type StaticKeyProvider struct {
	current Key
	keys    []Key // current first
	err     error // deferred validation error from options
}

// StaticOption configures a StaticKeyProvider.
type StaticOption func(*StaticKeyProvider)

// WithOldKey adds a retired key that is still accepted when opening tokens.
// The keyBytes must be 32 bytes and id must be non-empty and unique.
func WithOldKey(keyBytes []byte, id string) StaticOption {
	return func(p *StaticKeyProvider) {
		if p.err != nil {
			return
		}
		if slices.ContainsFunc(p.keys, func(k Key) bool { return k.ID == id }) {
			p.err = fmt.Errorf("%w: duplicate key ID %q", ErrInvalidKeyID, id)
			return
		}
		k, err := NewKey(id, keyBytes)
		if err != nil {
			p.err = err
			return
		}
		p.keys = append(p.keys, k)
	}
}

// NewStaticKeyProvider creates a KeyProvider with the given current key.
// Key bytes are copied internally; the caller may safely zero the original after construction.
func NewStaticKeyProvider(keyBytes []byte, id string, opts ...StaticOption) (*StaticKeyProvider, error) {
	current, err := NewKey(id, keyBytes)
	if err != nil {
		return nil, err
	}
	p := &StaticKeyProvider{
		current: current,
		keys:    []Key{current},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.err != nil {
		return nil, p.err
	}

	return p, nil
}

// RawKey is unwrapped key material handed over by an external key source.
type RawKey struct {
	ID    string
	Bytes []byte
}

// NewKeyProviderFromRaw builds a StaticKeyProvider from an ordered list of keys: the first is
// current, the rest are retired. The Bytes of every entry are zeroed before returning,
// whether or not construction succeeds.
func NewKeyProviderFromRaw(keys []RawKey) (*StaticKeyProvider, error) {
	defer func() {
		for _, k := range keys {
			clear(k.Bytes)
		}
	}()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys supplied", ErrKeyNotFound)
	}
	opts := make([]StaticOption, 0, len(keys)-1)
	for _, k := range keys[1:] {
		opts = append(opts, WithOldKey(k.Bytes, k.ID))
	}
	return NewStaticKeyProvider(keys[0].Bytes, keys[0].ID, opts...)
}

// NewKeyProvider decodes the secrets in cfg and returns a provider holding them.
// Retired secrets are added in key ID order.
func NewKeyProvider(cfg Config) (*StaticKeyProvider, error) {
	id := cfg.KeyID
	if id == "" {
		id = DefaultKeyID
	}

	raw, err := DecodeSecret(cfg.Secret)
	if err != nil {
		return nil, err
	}
	keys := []RawKey{{ID: id, Bytes: raw}}

	for _, oldID := range slices.Sorted(maps.Keys(cfg.RetiredSecrets)) {
		b, err := DecodeSecret(cfg.RetiredSecrets[oldID])
		if err != nil {
			for _, k := range keys {
				clear(k.Bytes)
			}
			return nil, fmt.Errorf("retired key %q: %w", oldID, err)
		}
		keys = append(keys, RawKey{ID: oldID, Bytes: b})
	}

	return NewKeyProviderFromRaw(keys)
}

// CurrentKey returns the current key for new encryptions.
func (p *StaticKeyProvider) CurrentKey() (Key, error) {
	return p.current, nil
}

// Keys returns the current key followed by retired keys.
func (p *StaticKeyProvider) Keys() ([]Key, error) {
	return slices.Clone(p.keys), nil
}

// KeyByID returns the key with the given ID.
func (p *StaticKeyProvider) KeyByID(id string) (Key, error) {
	for _, k := range p.keys {
		if k.ID == id {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
}

// Compile-time interface check.
var _ KeyProvider = (*StaticKeyProvider)(nil)

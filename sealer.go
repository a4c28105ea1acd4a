package credseal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxPlaintextSize is the Seal input limit used when none is configured.
const DefaultMaxPlaintextSize = 4096

// Sealer is the encryption entry point. It checks the platform, opens the current master key
// for the duration of one call, and returns tokens in the envelope format.
//
// Sealer holds no mutable state and is safe for concurrent use.
type Sealer struct {
	keys     KeyProvider
	platform Platform
	maxSize  int
	logger   *zap.Logger
	tel      *telemetry
}

// Option configures a Sealer.
type Option func(*options)

type options struct {
	platform       Platform
	maxSize        int
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithPlatform replaces the capability check. Defaults to the standard library platform.
func WithPlatform(p Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithMaxPlaintextSize bounds Seal input in bytes. Zero selects DefaultMaxPlaintextSize,
// a negative value disables the check.
func WithMaxPlaintextSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithLogger sets the logger used for failure diagnostics. Key material and plaintext are
// never logged.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// NewSealer creates a Sealer drawing keys from keys.
// Returns an error if keys is nil.
func NewSealer(keys KeyProvider, opts ...Option) (*Sealer, error) {
	if keys == nil {
		return nil, fmt.Errorf("credseal: NewSealer key provider is nil")
	}

	o := options{
		platform:       defaultPlatform,
		logger:         zap.NewNop(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.platform == nil {
		return nil, fmt.Errorf("credseal: NewSealer platform is nil")
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.maxSize == 0 {
		o.maxSize = DefaultMaxPlaintextSize
	}

	tel, err := newTelemetry(o.tracerProvider, o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("credseal: failed to create instruments: %w", err)
	}

	return &Sealer{
		keys:     keys,
		platform: o.platform,
		maxSize:  o.maxSize,
		logger:   o.logger,
		tel:      tel,
	}, nil
}

// NewSealerFromConfig builds the key provider from cfg and returns a Sealer using it.
// cfg.MaxPlaintextSize applies unless overridden by opts.
func NewSealerFromConfig(cfg Config, opts ...Option) (*Sealer, error) {
	keys, err := NewKeyProvider(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMaxPlaintextSize(cfg.MaxPlaintextSize)}, opts...)
	return NewSealer(keys, opts...)
}

// Seal encrypts a UTF-8 plaintext and returns its token.
func (s *Sealer) Seal(ctx context.Context, plaintext string) (string, error) {
	return s.SealBytes(ctx, []byte(plaintext))
}

// SealBytes encrypts plaintext and returns its token.
// It fails with ErrEnvironmentUnsupported, ErrPlaintextTooLarge, ErrInvalidKeyMaterial or
// ErrEncryptionFailure; it never returns an empty token without an error.
func (s *Sealer) SealBytes(ctx context.Context, plaintext []byte) (token string, err error) {
	ctx, span := s.tel.tracer.Start(ctx, "credseal.Seal",
		trace.WithAttributes(attribute.Int("credseal.plaintext.size", len(plaintext))))
	defer func() {
		s.tel.finish(ctx, span, s.tel.seals, err)
		if err != nil {
			s.logger.Debug("seal failed", zap.String("reason", errorKind(err)), zap.Error(err))
		}
	}()

	p, ok := s.platform.Provider()
	if !ok {
		return "", ErrEnvironmentUnsupported
	}
	if s.maxSize > 0 && len(plaintext) > s.maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPlaintextTooLarge, len(plaintext), s.maxSize)
	}

	key, err := s.keys.CurrentKey()
	if err != nil {
		return "", fmt.Errorf("credseal: failed to get current key: %w", err)
	}
	span.SetAttributes(attribute.String("credseal.key.id", key.ID))

	buf, err := key.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()

	env, err := encrypt(p, plaintext, buf.Bytes())
	if err != nil {
		return "", err
	}
	return env.Encode()
}

// Open verifies and decrypts a token into UTF-8 text.
func (s *Sealer) Open(ctx context.Context, token string) (string, error) {
	b, err := s.OpenBytes(ctx, token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OpenBytes verifies and decrypts a token. Every key from the provider is tried, current
// key first; if none authenticates the token the result is ErrAuthenticationFailure.
func (s *Sealer) OpenBytes(ctx context.Context, token string) (plaintext []byte, err error) {
	ctx, span := s.tel.tracer.Start(ctx, "credseal.Open")
	defer func() {
		s.tel.finish(ctx, span, s.tel.opens, err)
		if err != nil {
			s.logger.Debug("open failed", zap.String("reason", errorKind(err)))
		}
	}()

	p, ok := s.platform.Provider()
	if !ok {
		return nil, ErrEnvironmentUnsupported
	}

	env, err := ParseEnvelope(token)
	if err != nil {
		return nil, err
	}

	keys, err := s.keys.Keys()
	if err != nil {
		return nil, fmt.Errorf("credseal: failed to list keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("credseal: %w: provider returned no keys", ErrKeyNotFound)
	}

	for _, key := range keys {
		plaintext, err = s.openWith(p, env, key)
		if err == nil {
			span.SetAttributes(attribute.String("credseal.key.id", key.ID))
			return plaintext, nil
		}
		if !IsAuthenticationFailure(err) {
			return nil, err
		}
	}
	return nil, err
}

func (s *Sealer) openWith(p Provider, env Envelope, key Key) ([]byte, error) {
	buf, err := key.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	return decrypt(p, env, buf.Bytes())
}

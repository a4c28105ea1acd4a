// Package submit sends credentials to an authentication service with the password field
// sealed by credseal. Only the password is sealed; the email travels in cleartext.
//
// Usage:
//
//	sealer, err := credseal.NewSealerFromConfig(cfg)
//	client, err := submit.New(sealer, "https://api.example.com")
//	res, err := client.Signup(ctx, "random@example.com", password)
//	if err != nil {
//	    fmt.Println(submit.UserMessage(err))
//	}
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Default endpoint paths on the authentication service.
const (
	DefaultSignupPath = "/api/v1/auth/signup"
	DefaultLoginPath  = "/api/v1/auth/login"
)

// genericMessage is the only failure text shown to end users.
const genericMessage = "unable to submit credentials"

var (
	// ErrEmptyPassword is returned when the password field is empty. The sealer accepts empty
	// input, so the policy is enforced here.
	ErrEmptyPassword = errors.New("submit: password is empty")

	// ErrSealFailed wraps any error from the sealer.
	ErrSealFailed = errors.New("submit: failed to seal password")

	// ErrRejected is returned when the service answers with a non-2xx status.
	ErrRejected = errors.New("submit: request rejected")
)

// Sealer seals a plaintext into a transportable token. *credseal.Sealer satisfies it.
type Sealer interface {
	Seal(ctx context.Context, plaintext string) (string, error)
}

// Credentials is the request body sent to the service.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result describes a completed submission. The response body is not interpreted.
type Result struct {
	StatusCode int
}

// Client submits sealed credentials over HTTP.
// It is safe for concurrent use.
type Client struct {
	sealer     Sealer
	baseURL    *url.URL
	httpClient *http.Client
	signupPath string
	loginPath  string
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Defaults to a client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer("github.com/rbaliyan/credseal/submit")
	}
}

// WithSignupPath overrides DefaultSignupPath.
func WithSignupPath(p string) Option {
	return func(c *Client) {
		c.signupPath = p
	}
}

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(p string) Option {
	return func(c *Client) {
		c.loginPath = p
	}
}

// New creates a Client posting to paths under baseURL.
func New(sealer Sealer, baseURL string, opts ...Option) (*Client, error) {
	if sealer == nil {
		return nil, fmt.Errorf("submit: New sealer is nil")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("submit: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("submit: base URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		sealer:     sealer,
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		signupPath: DefaultSignupPath,
		loginPath:  DefaultLoginPath,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/rbaliyan/credseal/submit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Signup submits credentials to the signup endpoint.
func (c *Client) Signup(ctx context.Context, email, password string) (Result, error) {
	return c.submit(ctx, "signup", c.signupPath, email, password)
}

// Login submits credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, email, password string) (Result, error) {
	return c.submit(ctx, "login", c.loginPath, email, password)
}

func (c *Client) submit(ctx context.Context, op, path, email, password string) (res Result, err error) {
	ctx, span := c.tracer.Start(ctx, "submit."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submission failed")
			c.logger.Warn("credential submission failed", zap.String("op", op), zap.Error(err))
		}
		span.End()
	}()

	if password == "" {
		return Result{}, ErrEmptyPassword
	}

	token, err := c.sealer.Seal(ctx, password)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSealFailed, err)
	}
	if token == "" {
		return Result{}, fmt.Errorf("%w: sealer returned an empty token", ErrSealFailed)
	}

	body, err := json.Marshal(Credentials{Email: email, Password: token})
	if err != nil {
		return Result{}, fmt.Errorf("submit: failed to encode body: %w", err)
	}

	endpoint := c.baseURL.JoinPath(strings.TrimPrefix(path, "/")).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("submit: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("submit: request failed: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	res = Result{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	c.logger.Debug("credentials submitted", zap.String("op", op), zap.Int("status", resp.StatusCode))
	return res, nil
}

// UserMessage maps a submission error to text safe to show an end user.
// It returns "" for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return genericMessage
}

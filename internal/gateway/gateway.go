// Package gateway performs the agent's outbound API calls, attaching the
// admin session credential and applying one uniform failure policy for
// authentication problems.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/token"
)

// DefaultBaseURL is used when no API address is configured.
const DefaultBaseURL = "http://localhost:4000"

const defaultTimeout = 30 * time.Second

// ErrAuthRequired indicates no usable session credential is stored; no
// network call was attempted.
var ErrAuthRequired = errors.New("authentication required")

// ErrAuthExpired indicates the server rejected the session credential. The
// stored token has already been cleared; the caller must re-login.
var ErrAuthExpired = errors.New("authentication expired")

// Gateway wraps outbound calls with the bearer credential and uniform
// headers.
type Gateway struct {
	baseURL string
	tokens  *token.Store
	client  *http.Client
	logger  *slog.Logger
}

// Option customises Gateway construction.
type Option func(*Gateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// New constructs a Gateway against baseURL, falling back to DefaultBaseURL
// when blank.
func New(baseURL string, tokens *token.Store, logger *slog.Logger, opts ...Option) *Gateway {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	g := &Gateway{
		baseURL: strings.TrimRight(trimmed, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
	if g.logger != nil {
		g.logger = g.logger.With("component", "gateway")
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call issues an authenticated request. Caller-supplied headers win on every
// key except Authorization, which the gateway always sets. A 401 response
// clears the stored credential before the error reaches the caller; any
// transport failure propagates unchanged. On every other response the
// http.Response is returned unmodified and the caller owns the body.
func (g *Gateway) Call(ctx context.Context, method, path string, body io.Reader, headers http.Header) (*http.Response, error) {
	credential, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, ErrAuthRequired
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if clearErr := g.tokens.Clear(ctx); clearErr != nil && g.logger != nil {
			g.logger.Warn("failed to clear rejected credential", "error", clearErr)
		}
		return nil, fmt.Errorf("%w: %s %s", ErrAuthExpired, method, path)
	}
	return resp, nil
}

// Login authenticates against the ingest service and stores the returned
// credential and absolute expiry.
func (g *Gateway) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("encode login payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	var decoded struct {
		Token       string `json:"token"`
		ExpiresAtMs int64  `json:"expiresAtMs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if decoded.Token == "" || decoded.ExpiresAtMs <= 0 {
		return errors.New("login response missing token or expiry")
	}
	if err := g.tokens.SetToken(ctx, decoded.Token, decoded.ExpiresAtMs); err != nil {
		return err
	}
	if g.logger != nil {
		g.logger.Info("admin session established", "expires_at_ms", decoded.ExpiresAtMs)
	}
	return nil
}

// Package token holds the admin session credential and its absolute expiry
// in the agent's durable key/value area.
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/kv"
)

const (
	keyToken  = "admin_session_token"
	keyExpiry = "admin_session_expiry"
)

// Store wraps a kv.Store with session-credential bookkeeping. Queries are
// side-effect free; a malformed or past expiry means "not authenticated",
// never an error.
type Store struct {
	kv  kv.Store
	now func() time.Time
}

// NewStore constructs a Store. A nil clock falls back to time.Now.
func NewStore(backing kv.Store, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: backing, now: now}
}

// SetToken stores the credential and its absolute expiry in epoch
// milliseconds. The token is written before the expiry; a reader observing
// only the token treats the session as unauthenticated.
func (s *Store) SetToken(ctx context.Context, value string, expiresAtMs int64) error {
	if err := s.kv.Set(ctx, keyToken, value); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	if err := s.kv.Set(ctx, keyExpiry, strconv.FormatInt(expiresAtMs, 10)); err != nil {
		return fmt.Errorf("store session expiry: %w", err)
	}
	return nil
}

// Token returns the stored credential, or "" when the session is absent,
// expired, or malformed. The error reports storage failures only.
func (s *Store) Token(ctx context.Context) (string, error) {
	value, ok, err := s.kv.Get(ctx, keyToken)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	if !ok || value == "" {
		return "", nil
	}
	raw, ok, err := s.kv.Get(ctx, keyExpiry)
	if err != nil {
		return "", fmt.Errorf("read session expiry: %w", err)
	}
	if !ok {
		return "", nil
	}
	expiresAtMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || expiresAtMs <= 0 {
		return "", nil
	}
	if expiresAtMs <= s.now().UnixMilli() {
		return "", nil
	}
	return value, nil
}

// IsAuthenticated reports whether a usable credential is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	value, err := s.Token(ctx)
	return err == nil && value != ""
}

// Clear removes the credential and expiry unconditionally. Clearing an
// empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, keyToken); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	if err := s.kv.Delete(ctx, keyExpiry); err != nil {
		return fmt.Errorf("clear session expiry: %w", err)
	}
	return nil
}

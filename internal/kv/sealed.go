package kv

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jsukup/facial-sentiment-analysis-sub002/pkg/crypto"
)

// SealedStore wraps another Store and encrypts values at rest with AES-GCM.
// Keys stay in the clear; only values are sealed. Used for the on-disk agent
// state so a stored session credential is not readable off the filesystem.
type SealedStore struct {
	inner  Store
	secret string
}

var _ Store = (*SealedStore)(nil)

// NewSealedStore wraps inner with value encryption under secret.
func NewSealedStore(inner Store, secret string) *SealedStore {
	return &SealedStore{inner: inner, secret: secret}
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", false, fmt.Errorf("decode sealed value for %q: %w", key, err)
	}
	plain, err := crypto.Open(s.secret, raw)
	if err != nil {
		return "", false, fmt.Errorf("unseal value for %q: %w", key, err)
	}
	return plain, true, nil
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := crypto.Seal(s.secret, value)
	if err != nil {
		return fmt.Errorf("seal value for %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *SealedStore) Close() error {
	return s.inner.Close()
}

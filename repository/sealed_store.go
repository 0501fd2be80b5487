package repository

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/coachpro/go-auth"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "coachpro credential envelope"

// SealedStore encrypts envelopes before they reach the wrapped backend.
// The visitor key is bound as additional data, so a blob copied to
// another key fails to open.
type SealedStore struct {
	inner auth.ScopeBackend
	aead  cipher.AEAD
}

// NewSealedStore wraps inner with XChaCha20-Poly1305 using a key derived
// from secret.
func NewSealedStore(inner auth.ScopeBackend, secret []byte) (*SealedStore, error) {
	if inner == nil {
		return nil, errors.New("sealed store: missing backend")
	}
	if len(secret) < 16 {
		return nil, errors.New("sealed store: secret must be at least 16 bytes")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("sealed store: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed store: %w", err)
	}

	return &SealedStore{inner: inner, aead: aead}, nil
}

var _ auth.ScopeBackend = (*SealedStore)(nil)

// Load implements auth.ScopeBackend. Blobs that fail to open report
// auth.ErrCorruptSession.
func (s *SealedStore) Load(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed blob too short", auth.ErrCorruptSession)
	}

	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrCorruptSession, err)
	}
	return plain, nil
}

// Store implements auth.ScopeBackend
func (s *SealedStore) Store(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(blob)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed store: nonce: %w", err)
	}
	return s.inner.Store(ctx, key, s.aead.Seal(nonce, nonce, blob, []byte(key)), ttl)
}

// Delete implements auth.ScopeBackend
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

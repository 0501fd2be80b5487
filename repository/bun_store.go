package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialEnvelopeModel is the Bun model for persistent scope envelopes.
type CredentialEnvelopeModel struct {
	bun.BaseModel `bun:"table:credential_envelopes"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	Payload   string     `bun:"payload,notnull"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero"`
	UpdatedAt time.Time  `bun:"updated_at,notnull"`
}

// BunStore keeps envelopes in a SQL table. Rows are keyed by a hash of the
// visitor id so the table never holds the cookie value itself.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

// BunStoreOption customizes a BunStore
type BunStoreOption func(*BunStore)

// WithBunClock injects the clock used for expiry
func WithBunClock(now func() time.Time) BunStoreOption {
	return func(s *BunStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBunStore creates a store on db
func NewBunStore(db *bun.DB, opts ...BunStoreOption) *BunStore {
	s := &BunStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ auth.ScopeBackend = (*BunStore)(nil)

// CreateTable creates the envelope table if it does not exist
func (s *BunStore) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*CredentialEnvelopeModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Load implements auth.ScopeBackend. Expired rows are purged and reported
// as not found.
func (s *BunStore) Load(ctx context.Context, key string) ([]byte, error) {
	id, err := rowID(key)
	if err != nil {
		return nil, err
	}

	var model CredentialEnvelopeModel
	err = s.db.NewSelect().
		Model(&model).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrEnvelopeNotFound
		}
		return nil, err
	}

	if model.ExpiresAt != nil && !s.now().Before(*model.ExpiresAt) {
		if derr := s.deleteID(ctx, id); derr != nil {
			return nil, derr
		}
		return nil, auth.ErrEnvelopeNotFound
	}

	return []byte(model.Payload), nil
}

// Store implements auth.ScopeBackend. A zero ttl never expires.
func (s *BunStore) Store(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	id, err := rowID(key)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	model := &CredentialEnvelopeModel{
		ID:        id,
		Payload:   string(blob),
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		model.ExpiresAt = &expires
	}

	_, err = s.db.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Delete implements auth.ScopeBackend
func (s *BunStore) Delete(ctx context.Context, key string) error {
	id, err := rowID(key)
	if err != nil {
		return err
	}
	return s.deleteID(ctx, id)
}

// PurgeExpired removes every expired row and returns how many were removed
func (s *BunStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*CredentialEnvelopeModel)(nil)).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BunStore) deleteID(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.NewDelete().
		Model((*CredentialEnvelopeModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func rowID(key string) (uuid.UUID, error) {
	if key == "" {
		return uuid.Nil, auth.ErrMissingVisitor
	}
	id, err := hashid.NewUUID(key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash visitor key: %w", err)
	}
	return id, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenSlotModel is the Bun model for persisted token slots.
type TokenSlotModel struct {
	bun.BaseModel `bun:"table:token_slots"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	SlotKey   string    `bun:"slot_key,notnull,unique"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

var _ auth.TokenStore = &SlotStore{}

// SlotStore implements auth.TokenStore for a single slot using Bun.
type SlotStore struct {
	db  *bun.DB
	key string
}

// NewSlotStore creates a store for the slot key.
func NewSlotStore(db *bun.DB, key string) *SlotStore {
	if key == "" {
		key = auth.DefaultTokenKey
	}
	return &SlotStore{db: db, key: key}
}

// CreateSchema creates the token_slots table if needed.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*TokenSlotModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Key returns the slot key.
func (s *SlotStore) Key() string {
	return s.key
}

// Save implements auth.TokenStore.
func (s *SlotStore) Save(token string) error {
	id, err := hashid.NewUUID(s.key)
	if err != nil {
		return err
	}

	model := &TokenSlotModel{
		ID:        id,
		SlotKey:   s.key,
		Token:     token,
		UpdatedAt: time.Now(),
	}

	_, err = s.db.NewInsert().
		Model(model).
		On("CONFLICT (slot_key) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(context.Background())
	return err
}

// Read implements auth.TokenStore.
func (s *SlotStore) Read() (string, error) {
	var model TokenSlotModel
	err := s.db.NewSelect().
		Model(&model).
		Where("slot_key = ?", s.key).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", auth.ErrTokenNotFound
		}
		return "", err
	}

	if model.Token == "" {
		return "", auth.ErrTokenNotFound
	}
	return model.Token, nil
}

// Clear implements auth.TokenStore.
func (s *SlotStore) Clear() error {
	_, err := s.db.NewDelete().
		Model((*TokenSlotModel)(nil)).
		Where("slot_key = ?", s.key).
		Exec(context.Background())
	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/store"
)

// KeyRepository is the PostgreSQL-backed store.KeyStore.
//
// The one-key-per-user policy is enforced by a unique index on user_id, so
// the duplicate check and insert cannot race across connections. Lazy expiry
// deletes the row inside the same statement that finds it expired.
type KeyRepository struct {
	repo  *Repository
	clock clock.Clock
}

// NewKeyStore returns a store.KeyStore backed by the repository.
func (r *Repository) NewKeyStore(clk clock.Clock) *KeyRepository {
	return &KeyRepository{repo: r, clock: clk}
}

// IssueFreeKey mints a free-tier key for the user.
func (k *KeyRepository) IssueFreeKey(ctx context.Context, userID, plan string) (*model.Key, error) {
	duration, ok := model.PlanDuration(plan)
	if !ok {
		return nil, store.ErrUnknownPlan
	}

	now := k.clock.Now()
	key := &model.Key{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		IsPaid:    false,
		CreatedAt: now,
	}

	query := `
		INSERT INTO access_keys (id, user_id, expires_at, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := k.repo.pool.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.ExpiresAt,
		key.IsPaid,
		key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateUserKey
		}
		return nil, fmt.Errorf("failed to create key: %w", err)
	}

	return key, nil
}

// Validate looks up a key by id and evicts it if expired.
func (k *KeyRepository) Validate(ctx context.Context, id string) (*model.Key, error) {
	key, err := k.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, store.ErrKeyInvalid
		}
		return nil, err
	}

	if key.IsExpired(k.clock.Now()) {
		if _, err := k.repo.pool.Exec(ctx, `DELETE FROM access_keys WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to evict expired key: %w", err)
		}
		return nil, store.ErrKeyInvalid
	}

	return key, nil
}

// Get retrieves a key by id without expiry handling.
func (k *KeyRepository) Get(ctx context.Context, id string) (*model.Key, error) {
	query := `
		SELECT id, user_id, expires_at, is_paid, created_at
		FROM access_keys
		WHERE id = $1
	`

	var key model.Key
	err := k.repo.pool.QueryRow(ctx, query, id).Scan(
		&key.ID,
		&key.UserID,
		&key.ExpiresAt,
		&key.IsPaid,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return &key, nil
}

// Ping checks database connectivity.
func (k *KeyRepository) Ping(ctx context.Context) error {
	return k.repo.Ping(ctx)
}

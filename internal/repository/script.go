package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/store"
)

// ScriptRepository is the PostgreSQL-backed store.ScriptStore.
// The whitelist and blacklist are text[] columns; list edits happen in
// single UPDATE statements so they are idempotent and atomic per record.
type ScriptRepository struct {
	repo  *Repository
	clock clock.Clock
}

// NewScriptStore returns a store.ScriptStore backed by the repository.
func (r *Repository) NewScriptStore(clk clock.Clock) *ScriptRepository {
	return &ScriptRepository{repo: r, clock: clk}
}

// listColumn maps a ListKind to its column. The kind is a closed enum
// parsed at the boundary, so this never sees arbitrary input.
func listColumn(kind model.ListKind) string {
	if kind == model.Blacklist {
		return "blacklist"
	}
	return "whitelist"
}

// Create inserts a new script owned by the given key.
func (s *ScriptRepository) Create(ctx context.Context, code string, isPaid bool, owner *model.Key) (*model.Script, error) {
	script := &model.Script{
		ID:          ulid.Make().String(),
		OwnerKeyID:  owner.ID,
		OwnerUserID: owner.UserID,
		Code:        code,
		IsPaid:      isPaid,
		Whitelist:   []string{},
		Blacklist:   []string{},
		Executions:  0,
		CreatedAt:   s.clock.Now(),
	}

	query := `
		INSERT INTO scripts (id, owner_key_id, owner_user_id, code, is_paid, whitelist, blacklist, executions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.repo.pool.Exec(ctx, query,
		script.ID,
		script.OwnerKeyID,
		script.OwnerUserID,
		script.Code,
		script.IsPaid,
		pq.Array(script.Whitelist),
		pq.Array(script.Blacklist),
		script.Executions,
		script.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script: %w", err)
	}

	return script, nil
}

// Get retrieves a script by id.
func (s *ScriptRepository) Get(ctx context.Context, id string) (*model.Script, error) {
	query := `
		SELECT id, owner_key_id, owner_user_id, code, is_paid, whitelist, blacklist, executions, created_at
		FROM scripts
		WHERE id = $1
	`

	var script model.Script
	var whitelist, blacklist []string
	err := s.repo.pool.QueryRow(ctx, query, id).Scan(
		&script.ID,
		&script.OwnerKeyID,
		&script.OwnerUserID,
		&script.Code,
		&script.IsPaid,
		pq.Array(&whitelist),
		pq.Array(&blacklist),
		&script.Executions,
		&script.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrScriptNotFound
		}
		return nil, fmt.Errorf("failed to get script: %w", err)
	}

	script.Whitelist = whitelist
	script.Blacklist = blacklist
	if script.Whitelist == nil {
		script.Whitelist = []string{}
	}
	if script.Blacklist == nil {
		script.Blacklist = []string{}
	}
	return &script, nil
}

// List returns summaries of all scripts, oldest first.
func (s *ScriptRepository) List(ctx context.Context) ([]model.ScriptSummary, error) {
	query := `
		SELECT id, is_paid, executions
		FROM scripts
		ORDER BY id
	`

	rows, err := s.repo.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.ScriptSummary, 0)
	for rows.Next() {
		var summary model.ScriptSummary
		if err := rows.Scan(&summary.ID, &summary.IsPaid, &summary.Executions); err != nil {
			return nil, fmt.Errorf("failed to scan script summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scripts: %w", err)
	}

	return summaries, nil
}

// Delete removes a script by id.
func (s *ScriptRepository) Delete(ctx context.Context, id string) error {
	result, err := s.repo.pool.Exec(ctx, `DELETE FROM scripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrScriptNotFound
	}
	return nil
}

// AddToList adds a user to the script's list. Already-present users are
// left alone, so the statement is idempotent.
func (s *ScriptRepository) AddToList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	column := listColumn(kind)
	query := fmt.Sprintf(`
		UPDATE scripts
		SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		WHERE id = $1
	`, column)

	result, err := s.repo.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrScriptNotFound
	}
	return nil
}

// RemoveFromList removes a user from the script's list. Absent users are a
// no-op.
func (s *ScriptRepository) RemoveFromList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	column := listColumn(kind)
	query := fmt.Sprintf(`
		UPDATE scripts
		SET %[1]s = array_remove(%[1]s, $2)
		WHERE id = $1
	`, column)

	result, err := s.repo.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrScriptNotFound
	}
	return nil
}

// IncrementExecutions bumps the execution counter and returns the new value.
func (s *ScriptRepository) IncrementExecutions(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE scripts
		SET executions = executions + 1
		WHERE id = $1
		RETURNING executions
	`

	var executions int64
	err := s.repo.pool.QueryRow(ctx, query, id).Scan(&executions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrScriptNotFound
		}
		return 0, fmt.Errorf("failed to increment executions: %w", err)
	}

	return executions, nil
}

// Ping checks database connectivity.
func (s *ScriptRepository) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

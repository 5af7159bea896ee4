// Package store defines the key and script storage contracts plus the
// in-memory implementations that back a single-process deployment.
package store

import (
	"context"
	"errors"

	"github.com/scriptgate/scriptgate/internal/model"
)

// Common errors for store operations.
var (
	// ErrDuplicateUserKey indicates the user has already been issued a key.
	// The check deliberately includes expired keys: one free key per user,
	// ever, matching the issuance policy.
	ErrDuplicateUserKey = errors.New("user already has a key")

	// ErrKeyInvalid indicates the key does not exist or has expired.
	ErrKeyInvalid = errors.New("invalid or expired key")

	// ErrKeyNotFound indicates no key with that id is stored.
	ErrKeyNotFound = errors.New("key not found")

	// ErrScriptNotFound indicates no script with that id is stored.
	ErrScriptNotFound = errors.New("script not found")

	// ErrUnknownPlan indicates a plan name with no configured duration.
	ErrUnknownPlan = errors.New("unknown plan")
)

// KeyStore owns the set of issued keys.
type KeyStore interface {
	// IssueFreeKey mints a free-tier key for the user under the named plan.
	// Fails with ErrDuplicateUserKey if any stored key, expired or not,
	// already belongs to the user.
	IssueFreeKey(ctx context.Context, userID, plan string) (*model.Key, error)

	// Validate looks up a key by id and checks expiry. Expired keys are
	// evicted on lookup, so a second Validate of the same id also fails.
	Validate(ctx context.Context, id string) (*model.Key, error)

	// Get looks up a key by id without evicting it, even when expired.
	// The access-resolution path needs the raw record to report a binding
	// failure rather than silently discarding the key.
	Get(ctx context.Context, id string) (*model.Key, error)

	// Ping checks store availability.
	Ping(ctx context.Context) error
}

// ScriptStore owns the stored script records.
type ScriptStore interface {
	// Create stores a new script owned by the given key. The caller has
	// already validated the owner key and the code payload.
	Create(ctx context.Context, code string, isPaid bool, owner *model.Key) (*model.Script, error)

	// Get retrieves a script by id.
	Get(ctx context.Context, id string) (*model.Script, error)

	// List returns the summary projection of every stored script.
	List(ctx context.Context) ([]model.ScriptSummary, error)

	// Delete removes a script. All later lookups of the id fail.
	Delete(ctx context.Context, id string) error

	// AddToList adds a user to one of the script's lists. Adding a user
	// already present is a no-op.
	AddToList(ctx context.Context, id string, kind model.ListKind, userID string) error

	// RemoveFromList removes a user from one of the script's lists.
	// Removing an absent user is a no-op.
	RemoveFromList(ctx context.Context, id string, kind model.ListKind, userID string) error

	// IncrementExecutions bumps the execution counter by one and returns
	// the new value.
	IncrementExecutions(ctx context.Context, id string) (int64, error)

	// Ping checks store availability.
	Ping(ctx context.Context) error
}

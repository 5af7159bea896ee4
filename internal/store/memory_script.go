package store

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/model"
)

// MemoryScriptStore is a mutex-guarded in-memory ScriptStore.
type MemoryScriptStore struct {
	mu      sync.RWMutex
	clock   clock.Clock
	scripts map[string]*model.Script
}

// NewMemoryScriptStore creates an empty in-memory script store.
func NewMemoryScriptStore(clk clock.Clock) *MemoryScriptStore {
	return &MemoryScriptStore{
		clock:   clk,
		scripts: make(map[string]*model.Script),
	}
}

// Create stores a new script owned by the given key.
func (s *MemoryScriptStore) Create(ctx context.Context, code string, isPaid bool, owner *model.Key) (*model.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.scripts[script.ID] = script

	return copyScript(script), nil
}

// Get retrieves a script by id.
func (s *MemoryScriptStore) Get(ctx context.Context, id string) (*model.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	script, ok := s.scripts[id]
	if !ok {
		return nil, ErrScriptNotFound
	}
	return copyScript(script), nil
}

// List returns summaries of all scripts, oldest first.
func (s *MemoryScriptStore) List(ctx context.Context) ([]model.ScriptSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.ScriptSummary, 0, len(s.scripts))
	for _, script := range s.scripts {
		summaries = append(summaries, script.Summary())
	}
	// ULIDs are lexically sortable by creation time, so this yields a
	// stable oldest-first ordering.
	slices.SortFunc(summaries, func(a, b model.ScriptSummary) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return summaries, nil
}

// Delete removes a script by id.
func (s *MemoryScriptStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scripts[id]; !ok {
		return ErrScriptNotFound
	}
	delete(s.scripts, id)
	return nil
}

// AddToList adds a user to the script's list of the given kind.
func (s *MemoryScriptStore) AddToList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	script, ok := s.scripts[id]
	if !ok {
		return ErrScriptNotFound
	}

	switch kind {
	case model.Blacklist:
		if !slices.Contains(script.Blacklist, userID) {
			script.Blacklist = append(script.Blacklist, userID)
		}
	default:
		if !slices.Contains(script.Whitelist, userID) {
			script.Whitelist = append(script.Whitelist, userID)
		}
	}
	return nil
}

// RemoveFromList removes a user from the script's list of the given kind.
func (s *MemoryScriptStore) RemoveFromList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	script, ok := s.scripts[id]
	if !ok {
		return ErrScriptNotFound
	}

	remove := func(list []string) []string {
		if i := slices.Index(list, userID); i >= 0 {
			return slices.Delete(list, i, i+1)
		}
		return list
	}

	switch kind {
	case model.Blacklist:
		script.Blacklist = remove(script.Blacklist)
	default:
		script.Whitelist = remove(script.Whitelist)
	}
	return nil
}

// IncrementExecutions bumps the execution counter and returns the new value.
func (s *MemoryScriptStore) IncrementExecutions(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	script, ok := s.scripts[id]
	if !ok {
		return 0, ErrScriptNotFound
	}
	script.Executions++
	return script.Executions, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryScriptStore) Ping(ctx context.Context) error {
	return nil
}

// copyScript deep-copies a script so callers cannot mutate stored state.
func copyScript(script *model.Script) *model.Script {
	copied := *script
	copied.Whitelist = slices.Clone(script.Whitelist)
	copied.Blacklist = slices.Clone(script.Blacklist)
	return &copied
}

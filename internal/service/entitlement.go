// Package service provides business logic orchestration for the application.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/scriptgate/scriptgate/internal/access"
	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/metrics"
	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/store"
)

// Service errors.
var (
	ErrMissingFields  = errors.New("missing required fields")
	ErrDuplicateKey   = errors.New("user already has a key")
	ErrKeyInvalid     = errors.New("invalid or expired key")
	ErrScriptNotFound = errors.New("script not found")
	ErrForbidden      = errors.New("unauthorized")
)

// EntitlementService orchestrates the key and script stores. It is the only
// surface the HTTP layer talks to; no business rule lives outside it and the
// resolver.
type EntitlementService struct {
	keys     store.KeyStore
	scripts  store.ScriptStore
	clock    clock.Clock
	freePlan string
	metrics  metrics.Recorder
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(keys store.KeyStore, scripts store.ScriptStore, clk clock.Clock, freePlan string, recorder metrics.Recorder) *EntitlementService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if freePlan == "" {
		freePlan = model.DefaultFreePlan
	}
	return &EntitlementService{
		keys:     keys,
		scripts:  scripts,
		clock:    clk,
		freePlan: freePlan,
		metrics:  recorder,
	}
}

// IssueFreeKey mints a one-time free key for the user.
func (s *EntitlementService) IssueFreeKey(ctx context.Context, userID string) (*model.Key, error) {
	if userID == "" {
		return nil, ErrMissingFields
	}

	key, err := s.keys.IssueFreeKey(ctx, userID, s.freePlan)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUserKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("issue free key: %w", err)
	}

	s.metrics.IncKeyIssued()
	return key, nil
}

// FreePlan returns the plan name assigned to free keys.
func (s *EntitlementService) FreePlan() string {
	return s.freePlan
}

// ValidateKey checks a key id and reports its plan tier.
// Expired keys are evicted by the store on lookup, permanently.
func (s *EntitlementService) ValidateKey(ctx context.Context, keyID string) (*model.Key, error) {
	if keyID == "" {
		return nil, ErrMissingFields
	}

	key, err := s.keys.Validate(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrKeyInvalid) {
			s.metrics.IncKeyValidated(metrics.StatusInvalid)
			return nil, ErrKeyInvalid
		}
		return nil, fmt.Errorf("validate key: %w", err)
	}

	s.metrics.IncKeyValidated(metrics.StatusValid)
	return key, nil
}

// CreateScriptInput defines input for creating a script.
type CreateScriptInput struct {
	Code   string
	IsPaid bool
	KeyID  string
}

// CreateScript validates the owner key and stores a new script.
// The key is validated before any script state is touched, so a failed
// request never allocates a script id.
func (s *EntitlementService) CreateScript(ctx context.Context, input CreateScriptInput) (*model.Script, error) {
	if input.Code == "" || input.KeyID == "" {
		return nil, ErrMissingFields
	}

	key, err := s.keys.Validate(ctx, input.KeyID)
	if err != nil {
		if errors.Is(err, store.ErrKeyInvalid) {
			return nil, ErrKeyInvalid
		}
		return nil, fmt.Errorf("validate owner key: %w", err)
	}

	script, err := s.scripts.Create(ctx, input.Code, input.IsPaid, key)
	if err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}

	s.metrics.IncScriptCreated()
	return script, nil
}

// ListScripts returns the summary projection of all scripts.
func (s *EntitlementService) ListScripts(ctx context.Context) ([]model.ScriptSummary, error) {
	summaries, err := s.scripts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return summaries, nil
}

// DeleteScript removes a script by id.
func (s *EntitlementService) DeleteScript(ctx context.Context, id string) error {
	if err := s.scripts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrScriptNotFound) {
			return ErrScriptNotFound
		}
		return fmt.Errorf("delete script: %w", err)
	}

	s.metrics.IncScriptDeleted()
	return nil
}

// ScriptLists holds the access lists of a script.
type ScriptLists struct {
	Whitelist []string `json:"whitelist"`
	Blacklist []string `json:"blacklist"`
}

// GetLists returns the whitelist and blacklist of a script.
func (s *EntitlementService) GetLists(ctx context.Context, id string) (*ScriptLists, error) {
	script, err := s.scripts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrScriptNotFound) {
			return nil, ErrScriptNotFound
		}
		return nil, fmt.Errorf("get script: %w", err)
	}
	return &ScriptLists{
		Whitelist: script.Whitelist,
		Blacklist: script.Blacklist,
	}, nil
}

// AddToList adds a user to one of the script's access lists.
func (s *EntitlementService) AddToList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	if userID == "" {
		return ErrMissingFields
	}
	if err := s.scripts.AddToList(ctx, id, kind, userID); err != nil {
		if errors.Is(err, store.ErrScriptNotFound) {
			return ErrScriptNotFound
		}
		return fmt.Errorf("add to %s: %w", kind, err)
	}
	return nil
}

// RemoveFromList removes a user from one of the script's access lists.
func (s *EntitlementService) RemoveFromList(ctx context.Context, id string, kind model.ListKind, userID string) error {
	if userID == "" {
		return ErrMissingFields
	}
	if err := s.scripts.RemoveFromList(ctx, id, kind, userID); err != nil {
		if errors.Is(err, store.ErrScriptNotFound) {
			return ErrScriptNotFound
		}
		return fmt.Errorf("remove from %s: %w", kind, err)
	}
	return nil
}

// AccessResult is the outcome of a successful resolution: either the script
// payload, or a kick payload the client renders as a disconnect instruction.
type AccessResult struct {
	Code        string
	Kicked      bool
	KickPayload string
}

// ResolveAccess decides whether the requester may fetch the script payload.
// On an allow the script's execution counter is incremented exactly once.
func (s *EntitlementService) ResolveAccess(ctx context.Context, scriptID, keyID, requesterUserID string) (*AccessResult, error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.ObserveResolveDuration(s.clock.Now().Sub(start))
	}()

	script, err := s.scripts.Get(ctx, scriptID)
	if err != nil {
		if errors.Is(err, store.ErrScriptNotFound) {
			s.metrics.IncAccessResolved(metrics.OutcomeNotFound)
			return nil, ErrScriptNotFound
		}
		return nil, fmt.Errorf("get script: %w", err)
	}

	// Raw lookup: an expired key must reach the resolver so the failure is
	// classified as a binding failure, not a missing key.
	key, err := s.keys.Get(ctx, keyID)
	if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return nil, fmt.Errorf("get key: %w", err)
	}

	result := access.Resolve(script, key, requesterUserID, s.clock.Now())
	switch result.Decision {
	case access.DecisionNotFound:
		s.metrics.IncAccessResolved(metrics.OutcomeNotFound)
		return nil, ErrScriptNotFound
	case access.DecisionForbidden:
		s.metrics.IncAccessResolved(metrics.OutcomeForbidden)
		return nil, ErrForbidden
	case access.DecisionKick:
		s.metrics.IncAccessResolved(metrics.OutcomeKick)
		return &AccessResult{Kicked: true, KickPayload: result.KickPayload}, nil
	}

	if _, err := s.scripts.IncrementExecutions(ctx, scriptID); err != nil {
		return nil, fmt.Errorf("increment executions: %w", err)
	}

	s.metrics.IncAccessResolved(metrics.OutcomeAllow)
	return &AccessResult{Code: script.Code}, nil
}

// PingStores checks availability of both stores.
func (s *EntitlementService) PingStores(ctx context.Context) error {
	if err := s.keys.Ping(ctx); err != nil {
		return fmt.Errorf("key store: %w", err)
	}
	if err := s.scripts.Ping(ctx); err != nil {
		return fmt.Errorf("script store: %w", err)
	}
	return nil
}

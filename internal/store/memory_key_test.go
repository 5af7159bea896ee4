package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/testutil"
)

func TestMemoryKeyStore_IssueFreeKey(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	key, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan)
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}
	if key.ID == "" {
		t.Error("key ID should be generated")
	}
	if key.UserID != "alice" {
		t.Errorf("UserID = %s, want alice", key.UserID)
	}
	if key.IsPaid {
		t.Error("free key should not be paid")
	}
	wantExpiry := testutil.Epoch.Add(30 * 24 * time.Hour)
	if !key.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", key.ExpiresAt, wantExpiry)
	}
}

func TestMemoryKeyStore_IssueFreeKey_Duplicate(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	if _, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan); err != nil {
		t.Fatalf("first IssueFreeKey: %v", err)
	}
	if _, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan); !errors.Is(err, ErrDuplicateUserKey) {
		t.Errorf("second IssueFreeKey error = %v, want ErrDuplicateUserKey", err)
	}
}

func TestMemoryKeyStore_IssueFreeKey_DuplicateAfterExpiry(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	if _, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan); err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}

	// The key expires, but the one-key-per-user policy still holds.
	clk.Advance(31 * 24 * time.Hour)
	if _, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan); !errors.Is(err, ErrDuplicateUserKey) {
		t.Errorf("re-issuance after expiry error = %v, want ErrDuplicateUserKey", err)
	}
}

func TestMemoryKeyStore_IssueFreeKey_UnknownPlan(t *testing.T) {
	t.Parallel()

	s := NewMemoryKeyStore(testutil.NewFakeClock(testutil.Epoch))
	if _, err := s.IssueFreeKey(context.Background(), "alice", "lifetime"); !errors.Is(err, ErrUnknownPlan) {
		t.Errorf("error = %v, want ErrUnknownPlan", err)
	}
}

func TestMemoryKeyStore_Validate(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	issued, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan)
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}

	key, err := s.Validate(ctx, issued.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if key.Plan() != model.PlanFree {
		t.Errorf("Plan = %s, want %s", key.Plan(), model.PlanFree)
	}

	if _, err := s.Validate(ctx, "no-such-key"); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("unknown id error = %v, want ErrKeyInvalid", err)
	}
}

func TestMemoryKeyStore_Validate_EvictsExpired(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	issued, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan)
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}

	clk.Advance(31 * 24 * time.Hour)

	if _, err := s.Validate(ctx, issued.ID); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("expired validate error = %v, want ErrKeyInvalid", err)
	}

	// Eviction is permanent: the record is gone, not just rejected.
	if _, err := s.Get(ctx, issued.ID); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after eviction error = %v, want ErrKeyNotFound", err)
	}
	if _, err := s.Validate(ctx, issued.ID); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("second validate error = %v, want ErrKeyInvalid", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestMemoryKeyStore_Get_DoesNotEvict(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	issued, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan)
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}

	clk.Advance(31 * 24 * time.Hour)

	// Raw lookup returns the expired record untouched.
	key, err := s.Get(ctx, issued.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !key.IsExpired(clk.Now()) {
		t.Error("key should be expired")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryKeyStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	clk := testutil.NewFakeClock(testutil.Epoch)
	s := NewMemoryKeyStore(clk)
	ctx := context.Background()

	issued, err := s.IssueFreeKey(ctx, "alice", model.DefaultFreePlan)
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}

	issued.UserID = "mallory"

	stored, err := s.Get(ctx, issued.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.UserID != "alice" {
		t.Errorf("stored UserID = %s, want alice", stored.UserID)
	}
}

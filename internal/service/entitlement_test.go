package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scriptgate/scriptgate/internal/access"
	"github.com/scriptgate/scriptgate/internal/metrics"
	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/store"
	"github.com/scriptgate/scriptgate/internal/testutil"
)

func newTestService(t *testing.T) (*EntitlementService, *testutil.FakeClock, *metrics.InMemoryRecorder) {
	t.Helper()
	clk := testutil.NewFakeClock(testutil.Epoch)
	recorder := metrics.NewInMemory()
	svc := NewEntitlementService(
		store.NewMemoryKeyStore(clk),
		store.NewMemoryScriptStore(clk),
		clk,
		"",
		recorder,
	)
	return svc, clk, recorder
}

func mustIssueKey(t *testing.T, svc *EntitlementService, userID string) *model.Key {
	t.Helper()
	key, err := svc.IssueFreeKey(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueFreeKey(%s): %v", userID, err)
	}
	return key
}

func mustCreateScript(t *testing.T, svc *EntitlementService, keyID string, isPaid bool) *model.Script {
	t.Helper()
	script, err := svc.CreateScript(context.Background(), CreateScriptInput{
		Code:   "print('payload')",
		IsPaid: isPaid,
		KeyID:  keyID,
	})
	if err != nil {
		t.Fatalf("CreateScript: %v", err)
	}
	return script
}

func TestEntitlementService_IssueFreeKey(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	key, err := svc.IssueFreeKey(ctx, "alice")
	if err != nil {
		t.Fatalf("IssueFreeKey: %v", err)
	}
	if key.UserID != "alice" {
		t.Errorf("userID = %q, want alice", key.UserID)
	}
	if key.IsPaid {
		t.Error("free key must not be paid")
	}
	if want := testutil.Epoch.Add(30 * 24 * time.Hour); !key.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", key.ExpiresAt, want)
	}

	if _, err := svc.IssueFreeKey(ctx, ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty user error = %v, want ErrMissingFields", err)
	}
	if _, err := svc.IssueFreeKey(ctx, "alice"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate error = %v, want ErrDuplicateKey", err)
	}

	if got := recorder.Snapshot().KeysIssued; got != 1 {
		t.Errorf("keys issued = %d, want 1", got)
	}
}

func TestEntitlementService_IssueFreeKey_DuplicateSurvivesExpiry(t *testing.T) {
	t.Parallel()

	svc, clk, _ := newTestService(t)
	ctx := context.Background()

	mustIssueKey(t, svc, "alice")
	clk.Advance(31 * 24 * time.Hour)

	if _, err := svc.IssueFreeKey(ctx, "alice"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("reissue after expiry error = %v, want ErrDuplicateKey", err)
	}
}

func TestEntitlementService_ValidateKey(t *testing.T) {
	t.Parallel()

	svc, clk, recorder := newTestService(t)
	ctx := context.Background()

	key := mustIssueKey(t, svc, "alice")

	got, err := svc.ValidateKey(ctx, key.ID)
	if err != nil {
		t.Fatalf("ValidateKey: %v", err)
	}
	if got.ID != key.ID {
		t.Errorf("key id = %q, want %q", got.ID, key.ID)
	}

	if _, err := svc.ValidateKey(ctx, ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty key error = %v, want ErrMissingFields", err)
	}
	if _, err := svc.ValidateKey(ctx, "no-such-key"); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("unknown key error = %v, want ErrKeyInvalid", err)
	}

	// Validation of an expired key evicts it for good.
	clk.Advance(31 * 24 * time.Hour)
	if _, err := svc.ValidateKey(ctx, key.ID); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("expired key error = %v, want ErrKeyInvalid", err)
	}
	clk.Set(testutil.Epoch)
	if _, err := svc.ValidateKey(ctx, key.ID); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("evicted key error = %v, want ErrKeyInvalid", err)
	}

	snap := recorder.Snapshot()
	if snap.KeyValidationsValid != 1 {
		t.Errorf("valid validations = %d, want 1", snap.KeyValidationsValid)
	}
	if snap.KeyValidationsInvalid != 3 {
		t.Errorf("invalid validations = %d, want 3", snap.KeyValidationsInvalid)
	}
}

func TestEntitlementService_CreateScript(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	key := mustIssueKey(t, svc, "alice")

	script, err := svc.CreateScript(ctx, CreateScriptInput{Code: "code", IsPaid: true, KeyID: key.ID})
	if err != nil {
		t.Fatalf("CreateScript: %v", err)
	}
	if script.OwnerKeyID != key.ID || script.OwnerUserID != "alice" {
		t.Errorf("owner = (%q, %q), want (%q, alice)", script.OwnerKeyID, script.OwnerUserID, key.ID)
	}

	tests := []struct {
		name  string
		input CreateScriptInput
		want  error
	}{
		{"missing code", CreateScriptInput{KeyID: key.ID}, ErrMissingFields},
		{"missing key", CreateScriptInput{Code: "code"}, ErrMissingFields},
		{"invalid key", CreateScriptInput{Code: "code", KeyID: "bogus"}, ErrKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateScript(ctx, tt.input); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEntitlementService_CreateScript_ValidatesBeforeAllocating(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateScript(ctx, CreateScriptInput{Code: "code", KeyID: "bogus"}); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("error = %v, want ErrKeyInvalid", err)
	}

	summaries, err := svc.ListScripts(ctx)
	if err != nil {
		t.Fatalf("ListScripts: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("rejected create left %d scripts behind", len(summaries))
	}
}

func TestEntitlementService_DeleteScript(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	key := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, key.ID, false)

	if err := svc.DeleteScript(ctx, script.ID); err != nil {
		t.Fatalf("DeleteScript: %v", err)
	}
	if err := svc.DeleteScript(ctx, script.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("second delete error = %v, want ErrScriptNotFound", err)
	}

	// A deleted script resolves as missing, even for its owner.
	if _, err := svc.ResolveAccess(ctx, script.ID, key.ID, "alice"); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("resolve after delete error = %v, want ErrScriptNotFound", err)
	}

	if got := recorder.Snapshot().ScriptsDeleted; got != 1 {
		t.Errorf("scripts deleted = %d, want 1", got)
	}
}

func TestEntitlementService_ListManagement(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	key := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, key.ID, true)

	if err := svc.AddToList(ctx, script.ID, model.Whitelist, ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty user error = %v, want ErrMissingFields", err)
	}
	if err := svc.AddToList(ctx, "missing", model.Whitelist, "bob"); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("missing script error = %v, want ErrScriptNotFound", err)
	}

	if err := svc.AddToList(ctx, script.ID, model.Whitelist, "bob"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}
	if err := svc.AddToList(ctx, script.ID, model.Blacklist, "mallory"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}

	lists, err := svc.GetLists(ctx, script.ID)
	if err != nil {
		t.Fatalf("GetLists: %v", err)
	}
	if len(lists.Whitelist) != 1 || lists.Whitelist[0] != "bob" {
		t.Errorf("whitelist = %v, want [bob]", lists.Whitelist)
	}
	if len(lists.Blacklist) != 1 || lists.Blacklist[0] != "mallory" {
		t.Errorf("blacklist = %v, want [mallory]", lists.Blacklist)
	}

	if err := svc.RemoveFromList(ctx, script.ID, model.Blacklist, "mallory"); err != nil {
		t.Fatalf("RemoveFromList: %v", err)
	}
	lists, err = svc.GetLists(ctx, script.ID)
	if err != nil {
		t.Fatalf("GetLists: %v", err)
	}
	if len(lists.Blacklist) != 0 {
		t.Errorf("blacklist after remove = %v, want empty", lists.Blacklist)
	}
}

func TestEntitlementService_ResolveAccess_AllowCountsExecution(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	key := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, key.ID, false)

	result, err := svc.ResolveAccess(ctx, script.ID, key.ID, "alice")
	if err != nil {
		t.Fatalf("ResolveAccess: %v", err)
	}
	if result.Kicked {
		t.Fatal("unexpected kick")
	}
	if result.Code != "print('payload')" {
		t.Errorf("code = %q", result.Code)
	}

	summaries, err := svc.ListScripts(ctx)
	if err != nil {
		t.Fatalf("ListScripts: %v", err)
	}
	if summaries[0].Executions != 1 {
		t.Errorf("executions = %d, want 1", summaries[0].Executions)
	}

	if got := recorder.Snapshot().AccessAllowed; got != 1 {
		t.Errorf("allowed = %d, want 1", got)
	}
	if got := recorder.Snapshot().ResolveDurationCount; got != 1 {
		t.Errorf("resolve observations = %d, want 1", got)
	}
	// The service times resolution with its injected clock, so a frozen
	// clock observes a zero duration.
	if got := recorder.Snapshot().ResolveDurationNs; got != 0 {
		t.Errorf("resolve duration = %dns, want 0 under a frozen clock", got)
	}
}

func TestEntitlementService_ResolveAccess_BindingBeforeLists(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	alice := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, alice.ID, true)
	if err := svc.AddToList(ctx, script.ID, model.Blacklist, "bob"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}

	// Bob presents Alice's key: the binding fails before the blacklist is
	// ever consulted, so Bob is not kicked.
	if _, err := svc.ResolveAccess(ctx, script.ID, alice.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}

	snap := recorder.Snapshot()
	if snap.AccessForbidden != 1 {
		t.Errorf("forbidden = %d, want 1", snap.AccessForbidden)
	}
	if snap.AccessKicked != 0 {
		t.Errorf("kicked = %d, want 0", snap.AccessKicked)
	}
}

func TestEntitlementService_ResolveAccess_KickOutcomes(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	alice := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, alice.ID, true)
	if err := svc.AddToList(ctx, script.ID, model.Whitelist, "alice"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}
	if err := svc.AddToList(ctx, script.ID, model.Blacklist, "alice"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}

	// On both lists: blacklist wins.
	result, err := svc.ResolveAccess(ctx, script.ID, alice.ID, "alice")
	if err != nil {
		t.Fatalf("ResolveAccess: %v", err)
	}
	if !result.Kicked {
		t.Fatal("expected a kick result")
	}
	if result.KickPayload != access.KickBlacklisted {
		t.Errorf("payload = %q, want blacklist kick", result.KickPayload)
	}
	if !strings.Contains(result.KickPayload, "Kick(") {
		t.Errorf("payload %q does not look like a kick snippet", result.KickPayload)
	}

	// Kicks never count as executions.
	summaries, err := svc.ListScripts(ctx)
	if err != nil {
		t.Fatalf("ListScripts: %v", err)
	}
	if summaries[0].Executions != 0 {
		t.Errorf("executions = %d, want 0", summaries[0].Executions)
	}

	if got := recorder.Snapshot().AccessKicked; got != 1 {
		t.Errorf("kicked = %d, want 1", got)
	}
}

func TestEntitlementService_ResolveAccess_WhitelistExcludes(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	alice := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, alice.ID, true)
	if err := svc.AddToList(ctx, script.ID, model.Whitelist, "someone-else"); err != nil {
		t.Fatalf("AddToList: %v", err)
	}

	result, err := svc.ResolveAccess(ctx, script.ID, alice.ID, "alice")
	if err != nil {
		t.Fatalf("ResolveAccess: %v", err)
	}
	if !result.Kicked || result.KickPayload != access.KickNotWhitelisted {
		t.Errorf("result = %+v, want not-whitelisted kick", result)
	}
}

func TestEntitlementService_ResolveAccess_ExpiredKey(t *testing.T) {
	t.Parallel()

	svc, clk, _ := newTestService(t)
	ctx := context.Background()

	alice := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, alice.ID, false)

	clk.Advance(31 * 24 * time.Hour)
	if _, err := svc.ResolveAccess(ctx, script.ID, alice.ID, "alice"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expired key error = %v, want ErrForbidden", err)
	}
}

func TestEntitlementService_ResolveAccess_UnknownScriptAndKey(t *testing.T) {
	t.Parallel()

	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	alice := mustIssueKey(t, svc, "alice")
	script := mustCreateScript(t, svc, alice.ID, false)

	if _, err := svc.ResolveAccess(ctx, "missing", alice.ID, "alice"); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("missing script error = %v, want ErrScriptNotFound", err)
	}
	if _, err := svc.ResolveAccess(ctx, script.ID, "no-such-key", "alice"); !errors.Is(err, ErrForbidden) {
		t.Errorf("missing key error = %v, want ErrForbidden", err)
	}

	snap := recorder.Snapshot()
	if snap.AccessNotFound != 1 || snap.AccessForbidden != 1 {
		t.Errorf("notFound = %d, forbidden = %d, want 1 and 1", snap.AccessNotFound, snap.AccessForbidden)
	}
}

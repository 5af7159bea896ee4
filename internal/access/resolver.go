// Package access implements the entitlement decision for script requests.
//
// Resolution is a pure function of the script, the presented key, the
// requesting user, and the current instant. It holds no state and performs
// no I/O; the orchestrating service is responsible for loading the records
// and for applying the execution-counter side effect on an allow.
package access

import (
	"time"

	"github.com/scriptgate/scriptgate/internal/model"
)

// Decision is the outcome class of a resolution.
type Decision int

const (
	// DecisionNotFound means the requested script does not exist.
	DecisionNotFound Decision = iota

	// DecisionForbidden means the credential binding failed: the request
	// should never have reached script policy. Maps to a hard rejection.
	DecisionForbidden

	// DecisionKick means the credentials were fine but this script's
	// policy excludes the user. Carries a renderable payload the client
	// interprets as an instruction to disconnect.
	DecisionKick

	// DecisionAllow means the payload may be served. The caller must
	// increment the script's execution counter exactly once.
	DecisionAllow
)

// Kick payloads rendered to the connected client on a policy deny.
// These are client-side disconnect instructions, not transport errors.
const (
	KickBlacklisted    = `game.Players.LocalPlayer:Kick("You are blacklisted from this script.")`
	KickNotWhitelisted = `game.Players.LocalPlayer:Kick("You are not whitelisted for this script.")`
)

// Result is the outcome of a resolution.
type Result struct {
	Decision Decision
	// KickPayload is set only when Decision is DecisionKick.
	KickPayload string
}

// Resolve decides whether the requester may fetch the script payload.
//
// The check order encodes precedence and must not be rearranged:
// script existence, then the key/script/user binding, then paid-tier list
// policy. A nil key means no key with the presented id exists; an expired
// key is passed through so the binding failure is reported here rather
// than masked by store-side eviction.
func Resolve(script *model.Script, key *model.Key, requesterUserID string, now time.Time) Result {
	if script == nil {
		return Result{Decision: DecisionNotFound}
	}

	// The request must present the exact key the script was created with,
	// the key must belong to the claimed user, and it must be live.
	if key == nil || key.ID != script.OwnerKeyID || key.UserID != requesterUserID || key.IsExpired(now) {
		return Result{Decision: DecisionForbidden}
	}

	// Free scripts skip list policy entirely.
	if !script.IsPaid {
		return Result{Decision: DecisionAllow}
	}

	// Blacklist dominates whitelist.
	if script.InBlacklist(requesterUserID) {
		return Result{Decision: DecisionKick, KickPayload: KickBlacklisted}
	}
	// An empty whitelist means unrestricted.
	if len(script.Whitelist) > 0 && !script.InWhitelist(requesterUserID) {
		return Result{Decision: DecisionKick, KickPayload: KickNotWhitelisted}
	}

	return Result{Decision: DecisionAllow}
}

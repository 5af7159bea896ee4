package model

import (
	"slices"
	"time"
)

// Script is a stored code payload plus its access-control state.
// The code blob is opaque to the core; it is only ever handed back verbatim.
type Script struct {
	ID          string    `json:"id"`
	OwnerKeyID  string    `json:"owner_key_id"`
	OwnerUserID string    `json:"owner_user_id"`
	Code        string    `json:"-"` // Never serialize in listings
	IsPaid      bool      `json:"is_paid"`
	Whitelist   []string  `json:"whitelist"`
	Blacklist   []string  `json:"blacklist"`
	Executions  int64     `json:"executions"`
	CreatedAt   time.Time `json:"created_at"`
}

// InWhitelist reports whether the user appears in the script's whitelist.
func (s *Script) InWhitelist(userID string) bool {
	return slices.Contains(s.Whitelist, userID)
}

// InBlacklist reports whether the user appears in the script's blacklist.
func (s *Script) InBlacklist(userID string) bool {
	return slices.Contains(s.Blacklist, userID)
}

// List returns the list for the given kind.
func (s *Script) List(kind ListKind) []string {
	if kind == Blacklist {
		return s.Blacklist
	}
	return s.Whitelist
}

// ScriptSummary is the listing projection of a script. The code payload and
// the access lists are deliberately excluded.
type ScriptSummary struct {
	ID         string `json:"id"`
	IsPaid     bool   `json:"isPaid"`
	Executions int64  `json:"executions"`
}

// Summary returns the listing projection for this script.
func (s *Script) Summary() ScriptSummary {
	return ScriptSummary{
		ID:         s.ID,
		IsPaid:     s.IsPaid,
		Executions: s.Executions,
	}
}

package model

import "errors"

// ErrInvalidListKind indicates a list kind outside whitelist/blacklist.
var ErrInvalidListKind = errors.New("invalid list kind")

// ListKind identifies one of the two per-script access lists.
type ListKind string

// The two list kinds. There are no others.
const (
	Whitelist ListKind = "whitelist"
	Blacklist ListKind = "blacklist"
)

// ParseListKind converts an external string into a ListKind.
// Anything other than the two known kinds is rejected at the boundary so the
// stores only ever see a valid kind.
func ParseListKind(s string) (ListKind, error) {
	switch ListKind(s) {
	case Whitelist:
		return Whitelist, nil
	case Blacklist:
		return Blacklist, nil
	default:
		return "", ErrInvalidListKind
	}
}

// String returns the wire name of the list kind.
func (k ListKind) String() string {
	return string(k)
}

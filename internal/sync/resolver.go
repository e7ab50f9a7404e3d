// Package sync reconciles the local SQLite replica against the remote record
// store: pull (download and resolve), push (upload dirty rows) and restore
// (bulk recovery onto a fresh device).
package sync

import "github.com/yorutsuke/ledgersync/internal/models"

// Winner identifies which copy of a record survives resolution.
type Winner int

const (
	WinnerLocal Winner = iota
	WinnerRemote
)

func (w Winner) String() string {
	if w == WinnerRemote {
		return "remote"
	}
	return "local"
}

// Resolution is the outcome of comparing one local/remote pair.
type Resolution struct {
	Winner Winner

	// Conflict marks a discrepancy worth surfacing, even when the winner
	// is clear.
	Conflict bool
}

// Resolve decides which copy of a record to keep.
//
// A confirmed local record always wins: an explicit user confirmation
// outranks any timestamp, including a remote copy stamped newer by a stale
// batch job. Otherwise the newer UpdatedAt wins, with the remote copy taking
// a true tie. The tie is still flagged as a conflict even when the payloads
// are byte-identical; that forces a redundant write, but keeps the
// discrepancy auditable. Deliberately no equality special case.
func Resolve(local, remote *models.Record) Resolution {
	if local.Status == models.StatusConfirmed {
		return Resolution{Winner: WinnerLocal, Conflict: !local.FieldsEqual(remote)}
	}

	switch {
	case remote.UpdatedAt.After(local.UpdatedAt):
		return Resolution{Winner: WinnerRemote}
	case remote.UpdatedAt.Equal(local.UpdatedAt):
		return Resolution{Winner: WinnerRemote, Conflict: true}
	default:
		return Resolution{Winner: WinnerLocal, Conflict: true}
	}
}

package sync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yorutsuke/ledgersync/internal/logging"
	"github.com/yorutsuke/ledgersync/internal/models"
	"github.com/yorutsuke/ledgersync/internal/remote"
	"github.com/yorutsuke/ledgersync/internal/store"
)

// Result aggregates one SyncDown invocation. A partial failure never aborts
// the batch; each failed record lands in Errors as "<id>: <message>".
type Result struct {
	Synced    int
	Conflicts int
	Errors    []string
}

// Syncer orchestrates synchronization between the local store and the remote
// client. It never retries; retry policy belongs to the caller.
type Syncer struct {
	store  store.Repository
	client remote.Client
	log    logging.Logger
}

func New(st store.Repository, client remote.Client, log logging.Logger) *Syncer {
	return &Syncer{store: st, client: client, log: log}
}

// SyncDown fetches both replicas, resolves each pair independently and
// writes the remote winners back locally.
//
// A fetch failure aborts before any write: the returned Result carries zero
// counts and the failure as its only error entry, and the error is also
// returned so the caller can apply retry policy. Per-record write failures
// are isolated and only recorded in Result.Errors.
func (s *Syncer) SyncDown(ctx context.Context, ownerID string, opts remote.FetchOptions) (*Result, error) {
	res := &Result{}

	var remoteSet, localSet []*models.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := s.client.Fetch(gctx, ownerID, opts)
		if err != nil {
			return fmt.Errorf("remote fetch: %w", err)
		}
		remoteSet = rs
		return nil
	})
	g.Go(func() error {
		// Tombstones must be visible: a deletion is an ordinary field
		// state to compare.
		ls, err := s.store.List(gctx, ownerID, store.Filter{IncludeDeleted: true})
		if err != nil {
			return fmt.Errorf("local list: %w", err)
		}
		localSet = ls
		return nil
	})
	if err := g.Wait(); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res, err
	}

	local := make(map[string]*models.Record, len(localSet))
	for _, l := range localSet {
		local[l.ID] = l
	}

	for _, r := range remoteSet {
		l, ok := local[r.ID]
		if !ok {
			// New from remote: always taken, never a conflict.
			if err := s.store.Upsert(ctx, r); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", r.ID, err))
				continue
			}
			res.Synced++
			continue
		}

		d := Resolve(l, r)
		if d.Conflict {
			res.Conflicts++
			s.log.Warn(ctx, "sync conflict", "id", r.ID, "winner", d.Winner.String())
		}
		if d.Winner != WinnerRemote {
			continue
		}
		if err := s.store.Upsert(ctx, r); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", r.ID, err))
			continue
		}
		res.Synced++
	}

	s.log.Info(ctx, "sync down finished",
		"owner", ownerID, "synced", res.Synced, "conflicts", res.Conflicts, "errors", len(res.Errors))
	return res, nil
}

// SyncUp pushes dirty records and clears the flag for the acknowledged
// subset. Rejected ids stay dirty and ride along on the next invocation;
// that is the whole retry mechanism, SyncUp itself never loops.
func (s *Syncer) SyncUp(ctx context.Context, ownerID string) (*remote.PushResult, error) {
	dirty, err := s.store.ListDirty(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list dirty: %w", err)
	}
	if len(dirty) == 0 {
		return &remote.PushResult{}, nil
	}

	ack, err := s.client.Push(ctx, ownerID, dirty)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	failed := make(map[string]struct{}, len(ack.FailedIDs))
	for _, id := range ack.FailedIDs {
		failed[id] = struct{}{}
	}
	cleared := make([]string, 0, len(dirty))
	for _, r := range dirty {
		if _, ok := failed[r.ID]; !ok {
			cleared = append(cleared, r.ID)
		}
	}

	// If clearing fails the rows correctly stay dirty and are retried
	// later, so this error is surfaced as-is.
	if err := s.store.ClearDirty(ctx, cleared); err != nil {
		return nil, fmt.Errorf("clear dirty: %w", err)
	}

	s.log.Info(ctx, "sync up finished",
		"owner", ownerID, "pushed", len(dirty), "succeeded", ack.Succeeded, "failed", len(ack.FailedIDs))
	return ack, nil
}

// Restore bulk-imports the full remote record set into the local replica
// without raising dirty flags. Intended for new-device provisioning; safe to
// re-run.
func (s *Syncer) Restore(ctx context.Context, ownerID string) (int, error) {
	records, err := s.client.FetchAll(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("remote fetch: %w", err)
	}
	if err := s.store.BulkUpsert(ctx, records); err != nil {
		return 0, fmt.Errorf("bulk upsert: %w", err)
	}

	s.log.Info(ctx, "restore finished", "owner", ownerID, "records", len(records))
	return len(records), nil
}

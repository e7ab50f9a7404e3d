// Package service ties the local store, the remote client and the sync
// engine behind the operations the UI layer calls.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/yorutsuke/ledgersync/internal/assets"
	"github.com/yorutsuke/ledgersync/internal/logging"
	"github.com/yorutsuke/ledgersync/internal/models"
	"github.com/yorutsuke/ledgersync/internal/remote"
	"github.com/yorutsuke/ledgersync/internal/store"
	syncer "github.com/yorutsuke/ledgersync/internal/sync"
)

var ErrAssetsNotConfigured = errors.New("asset store not configured")

// Ledger is the application service over the local replica. Sync entry
// points wrap the orchestrators with the retry policy the orchestrators
// themselves deliberately omit.
type Ledger struct {
	store  store.Repository
	syncer *syncer.Syncer
	assets *assets.Store // nil disables receipt attachments
	log    logging.Logger

	retryAttempts uint64
	retryBase     time.Duration
}

func New(st store.Repository, client remote.Client, as *assets.Store, log logging.Logger) *Ledger {
	return &Ledger{
		store:         st,
		syncer:        syncer.New(st, client, log),
		assets:        as,
		log:           log,
		retryAttempts: 3,
		retryBase:     500 * time.Millisecond,
	}
}

// AddParams describes a new ledger record, either extracted from a receipt
// or entered by hand.
type AddParams struct {
	OwnerID          string
	Kind             models.Kind
	Category         models.Category
	Amount           int64
	Currency         string
	Description      string
	CounterpartyName string
	OccurredOn       time.Time
	LinkedAssetID    string
	Confidence       *float64
}

// Add creates an unconfirmed, dirty record.
func (l *Ledger) Add(ctx context.Context, p AddParams) (*models.Record, error) {
	now := time.Now().UTC()
	r := &models.Record{
		ID:               uuid.NewString(),
		OwnerID:          p.OwnerID,
		LinkedAssetID:    p.LinkedAssetID,
		Kind:             p.Kind,
		Category:         p.Category,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Description:      p.Description,
		CounterpartyName: p.CounterpartyName,
		OccurredOn:       p.OccurredOn,
		CreatedAt:        now,
		UpdatedAt:        now,
		Status:           models.StatusUnconfirmed,
		Confidence:       p.Confidence,
		Version:          1,
		Dirty:            true,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := l.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	l.log.Info(ctx, "record added", "id", r.ID, "amount", r.Amount, "category", r.Category)
	return r, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.Record, error) {
	return l.store.GetByID(ctx, id)
}

func (l *Ledger) List(ctx context.Context, ownerID string, f store.Filter) ([]*models.Record, error) {
	return l.store.List(ctx, ownerID, f)
}

func (l *Ledger) Count(ctx context.Context, ownerID string, f store.Filter) (int, error) {
	return l.store.Count(ctx, ownerID, f)
}

func (l *Ledger) Confirm(ctx context.Context, id string) error {
	return l.store.Confirm(ctx, id)
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	return l.store.SoftDelete(ctx, id)
}

func (l *Ledger) Edit(ctx context.Context, id string, p models.Patch) error {
	return l.store.Update(ctx, id, p)
}

// withRetry backs off and retries fn on retryable remote failures
// (rate limiting, outages). Everything else fails immediately.
func (l *Ledger) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(l.retryAttempts, retry.NewFibonacci(l.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && remote.IsRetryable(err) {
			l.log.Warn(ctx, "retrying after remote failure", "op", op, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// SyncDown reconciles the local replica against the remote one.
func (l *Ledger) SyncDown(ctx context.Context, ownerID string, opts remote.FetchOptions) (*syncer.Result, error) {
	var res *syncer.Result
	err := l.withRetry(ctx, "sync down", func(ctx context.Context) error {
		var e error
		res, e = l.syncer.SyncDown(ctx, ownerID, opts)
		return e
	})
	return res, err
}

// SyncUp pushes unacknowledged local changes.
func (l *Ledger) SyncUp(ctx context.Context, ownerID string) (*remote.PushResult, error) {
	var res *remote.PushResult
	err := l.withRetry(ctx, "sync up", func(ctx context.Context) error {
		var e error
		res, e = l.syncer.SyncUp(ctx, ownerID)
		return e
	})
	return res, err
}

// Restore bulk-imports the full remote set, for new-device provisioning.
func (l *Ledger) Restore(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := l.withRetry(ctx, "restore", func(ctx context.Context) error {
		var e error
		n, e = l.syncer.Restore(ctx, ownerID)
		return e
	})
	return n, err
}

// AttachReceipt uploads the receipt image and stores its remote key on the
// record. Returns the storage key.
func (l *Ledger) AttachReceipt(ctx context.Context, id string, image []byte) (string, error) {
	if l.assets == nil {
		return "", ErrAssetsNotConfigured
	}

	key, url, err := l.assets.PresignedPutURL(ctx)
	if err != nil {
		return "", err
	}
	if err := assets.Upload(ctx, url, image); err != nil {
		return "", err
	}
	if err := l.store.Update(ctx, id, models.Patch{RemoteAssetKey: &key}); err != nil {
		return "", err
	}

	l.log.Info(ctx, "receipt attached", "id", id, "key", key, "md5", assets.Hash(image))
	return key, nil
}

// ReceiptURL returns a presigned download URL for the record's stored image.
func (l *Ledger) ReceiptURL(ctx context.Context, id string) (string, error) {
	if l.assets == nil {
		return "", ErrAssetsNotConfigured
	}

	r, err := l.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if r.RemoteAssetKey == "" {
		return "", errors.New("record has no stored receipt")
	}
	return l.assets.PresignedGetURL(ctx, r.RemoteAssetKey)
}

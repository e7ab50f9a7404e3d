package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorutsuke/ledgersync/internal/logging"
	"github.com/yorutsuke/ledgersync/internal/models"
	"github.com/yorutsuke/ledgersync/internal/remote"
	"github.com/yorutsuke/ledgersync/internal/store"
)

const owner = "owner-1"

type fakeClient struct {
	records   []*models.Record
	fetchErrs []error // consumed one per call, nil slice means success
	calls     int

	pushRes *remote.PushResult
}

func (f *fakeClient) Fetch(ctx context.Context, ownerID string, opts remote.FetchOptions) ([]*models.Record, error) {
	f.calls++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.records, nil
}

func (f *fakeClient) FetchAll(ctx context.Context, ownerID string) ([]*models.Record, error) {
	return f.Fetch(ctx, ownerID, remote.FetchOptions{})
}

func (f *fakeClient) Push(ctx context.Context, ownerID string, records []*models.Record) (*remote.PushResult, error) {
	f.calls++
	if f.pushRes != nil {
		return f.pushRes, nil
	}
	return &remote.PushResult{Succeeded: len(records)}, nil
}

func newLedger(t *testing.T, client remote.Client) (*Ledger, *store.SQLiteRepository) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.RunMigrations(context.Background(), db))

	st := store.NewSQLiteRepository(db)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	l := New(st, client, nil, log)
	l.retryBase = time.Millisecond // keep retry tests fast
	return l, st
}

func addParams() AddParams {
	return AddParams{
		OwnerID:          owner,
		Kind:             models.KindDebit,
		Category:         models.CategoryDining,
		Amount:           1800,
		Currency:         "JPY",
		Description:      "ramen",
		CounterpartyName: "Ichiran",
		OccurredOn:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestAdd_CreatesUnconfirmedDirtyRecord(t *testing.T) {
	l, st := newLedger(t, &fakeClient{})
	ctx := context.Background()

	r, err := l.Add(ctx, addParams())
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)
	assert.Equal(t, models.StatusUnconfirmed, r.Status)
	assert.Equal(t, int64(1), r.Version)
	assert.True(t, r.Dirty)

	got, err := st.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Dirty)
	assert.True(t, r.FieldsEqual(got))
}

func TestAdd_RejectsInvalidParams(t *testing.T) {
	l, st := newLedger(t, &fakeClient{})
	ctx := context.Background()

	p := addParams()
	p.Kind = "transfer"
	_, err := l.Add(ctx, p)
	require.Error(t, err)

	n, err := st.Count(ctx, owner, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConfirmDeleteEdit_PassThrough(t *testing.T) {
	l, st := newLedger(t, &fakeClient{})
	ctx := context.Background()

	r, err := l.Add(ctx, addParams())
	require.NoError(t, err)

	require.NoError(t, l.Confirm(ctx, r.ID))
	got, err := st.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	amount := int64(2000)
	require.NoError(t, l.Edit(ctx, r.ID, models.Patch{Amount: &amount}))
	got, err = l.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.Amount)

	require.NoError(t, l.Delete(ctx, r.ID))
	got, err = l.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, got.Status)
}

func TestSyncDown_RetriesRetryableFailures(t *testing.T) {
	client := &fakeClient{fetchErrs: []error{remote.ErrRateLimited, remote.ErrRemoteUnavailable, nil}}
	l, _ := newLedger(t, client)

	res, err := l.SyncDown(context.Background(), owner, remote.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Synced)
	assert.Equal(t, 3, client.calls)
}

func TestSyncDown_DoesNotRetryTerminalFailures(t *testing.T) {
	client := &fakeClient{fetchErrs: []error{remote.ErrUnauthorized}}
	l, _ := newLedger(t, client)

	_, err := l.SyncDown(context.Background(), owner, remote.FetchOptions{})
	require.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.Equal(t, 1, client.calls)
}

func TestSyncDown_GivesUpAfterMaxRetries(t *testing.T) {
	client := &fakeClient{fetchErrs: []error{
		remote.ErrRateLimited, remote.ErrRateLimited, remote.ErrRateLimited, remote.ErrRateLimited,
	}}
	l, _ := newLedger(t, client)

	_, err := l.SyncDown(context.Background(), owner, remote.FetchOptions{})
	require.ErrorIs(t, err, remote.ErrRateLimited)
	assert.Equal(t, 4, client.calls) // initial attempt plus three retries
}

func TestSyncUp_PushesAndClears(t *testing.T) {
	client := &fakeClient{}
	l, st := newLedger(t, client)
	ctx := context.Background()

	r, err := l.Add(ctx, addParams())
	require.NoError(t, err)

	res, err := l.SyncUp(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	got, err := st.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.Dirty)
}

func TestRestore_ImportsRemoteSet(t *testing.T) {
	conf := 0.8
	client := &fakeClient{records: []*models.Record{{
		ID:         "rec-1",
		OwnerID:    owner,
		Kind:       models.KindCredit,
		Category:   models.CategoryIncome,
		Amount:     250000,
		Currency:   "JPY",
		OccurredOn: time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 3, 25, 9, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 3, 25, 9, 0, 0, 0, time.UTC),
		Status:     models.StatusConfirmed,
		Confidence: &conf,
		Version:    3,
	}}}
	l, st := newLedger(t, client)

	n, err := l.Restore(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetByID(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.False(t, got.Dirty)
}

func TestReceipts_RequireConfiguredAssetStore(t *testing.T) {
	l, _ := newLedger(t, &fakeClient{})
	ctx := context.Background()

	_, err := l.AttachReceipt(ctx, "rec-1", []byte("jpeg"))
	require.ErrorIs(t, err, ErrAssetsNotConfigured)

	_, err = l.ReceiptURL(ctx, "rec-1")
	require.ErrorIs(t, err, ErrAssetsNotConfigured)
}

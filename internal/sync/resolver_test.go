package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorutsuke/ledgersync/internal/models"
)

func record(updatedAt time.Time, mutate ...func(*models.Record)) *models.Record {
	r := &models.Record{
		ID:         "rec-1",
		OwnerID:    "owner-1",
		Kind:       models.KindDebit,
		Category:   models.CategoryGrocery,
		Amount:     3000,
		Currency:   "JPY",
		OccurredOn: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UpdatedAt:  updatedAt,
		Status:     models.StatusUnconfirmed,
		Version:    1,
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func TestResolve(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		local  *models.Record
		remote *models.Record
		want   Resolution
	}{
		{
			name:   "confirmed local beats newer remote",
			local:  record(base, func(r *models.Record) { r.Status = models.StatusConfirmed }),
			remote: record(base.Add(time.Hour), func(r *models.Record) { r.Amount = 5000 }),
			want:   Resolution{Winner: WinnerLocal, Conflict: true},
		},
		{
			name: "confirmed local with equal fields is quiet",
			local: record(base, func(r *models.Record) {
				r.Status = models.StatusConfirmed
				r.Dirty = true // local bookkeeping never counts as a difference
			}),
			remote: record(base, func(r *models.Record) { r.Status = models.StatusConfirmed }),
			want:   Resolution{Winner: WinnerLocal, Conflict: false},
		},
		{
			name:   "newer remote wins without conflict",
			local:  record(base),
			remote: record(base.Add(time.Minute), func(r *models.Record) { r.Amount = 5000 }),
			want:   Resolution{Winner: WinnerRemote, Conflict: false},
		},
		{
			name:   "newer local wins with conflict",
			local:  record(base.Add(time.Minute), func(r *models.Record) { r.Amount = 5000 }),
			remote: record(base),
			want:   Resolution{Winner: WinnerLocal, Conflict: true},
		},
		{
			name:   "timestamp tie goes to remote with conflict",
			local:  record(base),
			remote: record(base),
			want:   Resolution{Winner: WinnerRemote, Conflict: true},
		},
		{
			name:   "remote tombstone wins over older unconfirmed local",
			local:  record(base),
			remote: record(base.Add(time.Hour), func(r *models.Record) { r.Status = models.StatusDeleted }),
			want:   Resolution{Winner: WinnerRemote, Conflict: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.local, tt.remote))
		})
	}
}

func TestWinnerString(t *testing.T) {
	assert.Equal(t, "local", WinnerLocal.String())
	assert.Equal(t, "remote", WinnerRemote.String())
}

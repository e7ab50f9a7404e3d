package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorutsuke/ledgersync/internal/models"
)

func validWire() wireRecord {
	conf := 0.9
	return wireRecord{
		ID:               "rec-1",
		OwnerID:          "owner-1",
		Kind:             "debit",
		Category:         "dining",
		Amount:           1800,
		Currency:         "JPY",
		Description:      "ramen",
		CounterpartyName: "Ichiran",
		OccurredOn:       "2026-03-14",
		CreatedAt:        "2026-03-14T12:00:00Z",
		UpdatedAt:        "2026-03-14T12:30:00Z",
		Status:           "unconfirmed",
		Confidence:       &conf,
		Version:          2,
	}
}

func TestWireRecord_Decode(t *testing.T) {
	w := validWire()
	r, err := w.decode()
	require.NoError(t, err)

	assert.Equal(t, "rec-1", r.ID)
	assert.Equal(t, models.KindDebit, r.Kind)
	assert.Equal(t, models.CategoryDining, r.Category)
	assert.Equal(t, models.StatusUnconfirmed, r.Status)
	assert.True(t, r.OccurredOn.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.UpdatedAt.Equal(time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)))
	require.NotNil(t, r.Confidence)
	assert.Equal(t, 0.9, *r.Confidence)
	// Pulled rows must never look locally modified.
	assert.False(t, r.Dirty)
}

func TestWireRecord_DecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*wireRecord)
		field  string
	}{
		{"missing id", func(w *wireRecord) { w.ID = "" }, "id"},
		{"missing owner", func(w *wireRecord) { w.OwnerID = "" }, "ownerId"},
		{"missing currency", func(w *wireRecord) { w.Currency = "" }, "currency"},
		{"unknown kind", func(w *wireRecord) { w.Kind = "transfer" }, "kind"},
		{"unknown category", func(w *wireRecord) { w.Category = "snacks" }, "category"},
		{"unknown status", func(w *wireRecord) { w.Status = "pending" }, "status"},
		{"bad date", func(w *wireRecord) { w.OccurredOn = "14/03/2026" }, "occurredOn"},
		{"bad created", func(w *wireRecord) { w.CreatedAt = "yesterday" }, "createdAt"},
		{"bad updated", func(w *wireRecord) { w.UpdatedAt = "" }, "updatedAt"},
		{"confidence above one", func(w *wireRecord) {
			v := 1.5
			w.Confidence = &v
		}, "confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWire()
			tt.mutate(&w)

			_, err := w.decode()
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.field, perr.Field)
		})
	}
}

func TestDecodeRecords_OneBadRecordFailsAll(t *testing.T) {
	bad := validWire()
	bad.Kind = "???"

	_, err := decodeRecords([]wireRecord{validWire(), bad})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestEncodeRecord_RoundTrip(t *testing.T) {
	w := validWire()
	r, err := w.decode()
	require.NoError(t, err)

	assert.Equal(t, &w, encodeRecord(r))
}

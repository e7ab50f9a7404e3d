package remote

import (
	"time"

	"github.com/yorutsuke/ledgersync/internal/models"
)

const dateLayout = "2006-01-02"

// wireRecord is the remote representation of a ledger record. Responses are
// validated field by field before anything is trusted; one bad record fails
// the whole response.
type wireRecord struct {
	ID               string   `json:"id"`
	OwnerID          string   `json:"ownerId"`
	LinkedAssetID    string   `json:"linkedAssetId,omitempty"`
	RemoteAssetKey   string   `json:"remoteAssetKey,omitempty"`
	Kind             string   `json:"kind"`
	Category         string   `json:"category"`
	Amount           int64    `json:"amount"`
	Currency         string   `json:"currency"`
	Description      string   `json:"description"`
	CounterpartyName string   `json:"counterpartyName"`
	OccurredOn       string   `json:"occurredOn"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
	Status           string   `json:"status"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Version          int64    `json:"version"`
}

type dateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type fetchRequest struct {
	OwnerID      string     `json:"ownerId"`
	DateRange    *dateRange `json:"dateRange,omitempty"`
	StatusFilter string     `json:"statusFilter,omitempty"`
	Limit        int        `json:"limit"`
	Cursor       string     `json:"cursor,omitempty"`
}

type fetchResponse struct {
	Records    []wireRecord `json:"records"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

type pushRequest struct {
	OwnerID string        `json:"ownerId"`
	Records []*wireRecord `json:"records"`
}

type pushResponse struct {
	SucceededCount int      `json:"succeededCount"`
	FailedIDs      []string `json:"failedIds"`
}

// decode validates the wire record and maps it to the domain shape. The
// dirty flag stays false: the remote replica has no such field and pulled
// rows must not look locally modified.
func (w *wireRecord) decode() (*models.Record, error) {
	if w.ID == "" {
		return nil, protocolErr("id", "missing required field")
	}
	if w.OwnerID == "" {
		return nil, protocolErr("ownerId", "missing required field")
	}
	if w.Currency == "" {
		return nil, protocolErr("currency", "missing required field")
	}

	kind := models.Kind(w.Kind)
	if !kind.Valid() {
		return nil, protocolErr("kind", "unknown value %q", w.Kind)
	}
	category := models.Category(w.Category)
	if !category.Valid() {
		return nil, protocolErr("category", "unknown value %q", w.Category)
	}
	status := models.Status(w.Status)
	if !status.Valid() {
		return nil, protocolErr("status", "unknown value %q", w.Status)
	}

	occurredOn, err := time.Parse(dateLayout, w.OccurredOn)
	if err != nil {
		return nil, protocolErr("occurredOn", "invalid date %q", w.OccurredOn)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return nil, protocolErr("createdAt", "invalid timestamp %q", w.CreatedAt)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, w.UpdatedAt)
	if err != nil {
		return nil, protocolErr("updatedAt", "invalid timestamp %q", w.UpdatedAt)
	}

	if w.Confidence != nil && (*w.Confidence < 0 || *w.Confidence > 1) {
		return nil, protocolErr("confidence", "out of range %v", *w.Confidence)
	}

	return &models.Record{
		ID:               w.ID,
		OwnerID:          w.OwnerID,
		LinkedAssetID:    w.LinkedAssetID,
		RemoteAssetKey:   w.RemoteAssetKey,
		Kind:             kind,
		Category:         category,
		Amount:           w.Amount,
		Currency:         w.Currency,
		Description:      w.Description,
		CounterpartyName: w.CounterpartyName,
		OccurredOn:       occurredOn,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
		Status:           status,
		Confidence:       w.Confidence,
		Version:          w.Version,
	}, nil
}

func encodeRecord(r *models.Record) *wireRecord {
	return &wireRecord{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		LinkedAssetID:    r.LinkedAssetID,
		RemoteAssetKey:   r.RemoteAssetKey,
		Kind:             string(r.Kind),
		Category:         string(r.Category),
		Amount:           r.Amount,
		Currency:         r.Currency,
		Description:      r.Description,
		CounterpartyName: r.CounterpartyName,
		OccurredOn:       r.OccurredOn.UTC().Format(dateLayout),
		CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Status:           string(r.Status),
		Confidence:       r.Confidence,
		Version:          r.Version,
	}
}

func decodeRecords(ws []wireRecord) ([]*models.Record, error) {
	result := make([]*models.Record, 0, len(ws))
	for i := range ws {
		r, err := ws[i].decode()
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

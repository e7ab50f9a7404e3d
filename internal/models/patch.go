package models

import "time"

// Patch carries a partial update: only non-nil fields are applied. Status
// changes go through the dedicated Confirm/SoftDelete operations instead.
type Patch struct {
	LinkedAssetID    *string
	RemoteAssetKey   *string
	Kind             *Kind
	Category         *Category
	Amount           *int64
	Currency         *string
	Description      *string
	CounterpartyName *string
	OccurredOn       *time.Time
	Confidence       *float64
}

// IsEmpty reports whether the patch carries no fields at all.
func (p Patch) IsEmpty() bool {
	return p.LinkedAssetID == nil && p.RemoteAssetKey == nil &&
		p.Kind == nil && p.Category == nil &&
		p.Amount == nil && p.Currency == nil &&
		p.Description == nil && p.CounterpartyName == nil &&
		p.OccurredOn == nil && p.Confidence == nil
}

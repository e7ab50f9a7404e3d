// Package models defines the ledger record types shared by the local store,
// the remote client and the sync engine.
package models

import (
	"fmt"
	"time"
)

// Kind classifies a record as money in or money out.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCredit, KindDebit:
		return true
	}
	return false
}

// Category buckets a record for reporting. The set is closed; the remote
// store rejects anything else.
type Category string

const (
	CategoryGrocery   Category = "grocery"
	CategoryDining    Category = "dining"
	CategoryTransport Category = "transport"
	CategoryUtilities Category = "utilities"
	CategoryMedical   Category = "medical"
	CategoryShopping  Category = "shopping"
	CategoryLeisure   Category = "leisure"
	CategoryIncome    Category = "income"
	CategoryOther     Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGrocery, CategoryDining, CategoryTransport, CategoryUtilities,
		CategoryMedical, CategoryShopping, CategoryLeisure, CategoryIncome,
		CategoryOther:
		return true
	}
	return false
}

// Status tracks the record lifecycle. Deleted is terminal: records are kept
// as tombstones so both replicas can compare deletions.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusDeleted     Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnconfirmed, StatusConfirmed, StatusDeleted:
		return true
	}
	return false
}

// Record is the synchronized unit: one financial transaction derived from a
// scanned receipt or entered by hand.
type Record struct {
	// ID is globally unique and stable across replicas.
	ID string

	// OwnerID scopes every query and sync operation.
	OwnerID string

	// LinkedAssetID weakly references the local receipt image, if any.
	LinkedAssetID string

	// RemoteAssetKey is the opaque remote storage key for the image, set
	// once the asset has been uploaded so sync never resends the bytes.
	RemoteAssetKey string

	Kind     Kind
	Category Category

	// Amount is in minor currency units (e.g. yen, cents).
	Amount   int64
	Currency string

	Description      string
	CounterpartyName string

	// OccurredOn is the calendar date of the purchase, not a timestamp.
	OccurredOn time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Status Status

	// Confidence is the OCR extraction score, informational only.
	Confidence *float64

	// Version is an advisory revision counter carried over the wire. It is
	// not used for optimistic concurrency; UpdatedAt drives resolution.
	Version int64

	// Dirty marks unacknowledged local changes. Local-only: it never goes
	// over the wire and remote-originated writes leave it false.
	Dirty bool
}

// Validate checks that the record can be persisted.
func (r *Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("record: %w", errRequired("id"))
	case r.OwnerID == "":
		return fmt.Errorf("record: %w", errRequired("ownerId"))
	case r.Currency == "":
		return fmt.Errorf("record: %w", errRequired("currency"))
	case !r.Kind.Valid():
		return fmt.Errorf("record: invalid kind %q", r.Kind)
	case !r.Category.Valid():
		return fmt.Errorf("record: invalid category %q", r.Category)
	case !r.Status.Valid():
		return fmt.Errorf("record: invalid status %q", r.Status)
	case r.OccurredOn.IsZero():
		return fmt.Errorf("record: %w", errRequired("occurredOn"))
	}
	return nil
}

func errRequired(field string) error {
	return fmt.Errorf("missing required field %q", field)
}

// FieldsEqual reports whether two records carry the same synchronized field
// values. Dirty is local bookkeeping and is ignored.
func (r *Record) FieldsEqual(o *Record) bool {
	if o == nil {
		return false
	}
	if r.ID != o.ID || r.OwnerID != o.OwnerID ||
		r.LinkedAssetID != o.LinkedAssetID || r.RemoteAssetKey != o.RemoteAssetKey ||
		r.Kind != o.Kind || r.Category != o.Category ||
		r.Amount != o.Amount || r.Currency != o.Currency ||
		r.Description != o.Description || r.CounterpartyName != o.CounterpartyName ||
		r.Status != o.Status || r.Version != o.Version {
		return false
	}
	if !r.OccurredOn.Equal(o.OccurredOn) || !r.CreatedAt.Equal(o.CreatedAt) || !r.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if (r.Confidence == nil) != (o.Confidence == nil) {
		return false
	}
	if r.Confidence != nil && *r.Confidence != *o.Confidence {
		return false
	}
	return true
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Confidence != nil {
		v := *r.Confidence
		c.Confidence = &v
	}
	return &c
}

// Package common defines shared sentinel errors used across the ledger
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorRecordDeleted is returned when a mutation targets a tombstone;
	// deleted is a terminal status.
	ErrorRecordDeleted = errors.New("record deleted")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
)

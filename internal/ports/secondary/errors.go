// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application
// drives the datastore and external systems.
package secondary

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	// (or is soft-deleted and the query excludes deleted rows).
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by conditional updates when the row was
	// changed by another writer since it was read. It is expected and
	// benign: the losing writer re-reads or skips, it never retries the
	// same write blindly.
	ErrConflict = errors.New("concurrent update conflict")
)

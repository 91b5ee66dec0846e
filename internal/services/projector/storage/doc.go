// Package storage defines the persistence contracts for projector read models.
//
// Each projection kind has its own store. Absence is reported as ErrNotFound
// and is an expected outcome for propagators; every other failure is a
// STORE_FAILURE. Stores never coordinate with one another, so callers must
// treat each write as independent.
package storage

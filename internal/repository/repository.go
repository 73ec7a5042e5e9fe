// Package repository handles all interactions with the database.
//
// It contains the bun queries that fetch, persist, or update
// data, abstracting SQL logic away from the service layer
package repository

import (
	"context"

	"github.com/deppfellow/iban-manager/internal/model/iban"
)

// IBANStore is the persistence contract of IBAN records.
//
// Lookups of a missing record return an error wrapping sql.ErrNoRows.
type IBANStore interface {
	List(ctx context.Context, filter iban.ListFilter) ([]iban.IBAN, error)
	GetByID(ctx context.Context, id int64) (*iban.IBAN, error)

	// NumberTaken reports whether another record holds number.
	// A zero excludeID checks every record.
	NumberTaken(ctx context.Context, number string, excludeID int64) (bool, error)

	Create(ctx context.Context, record *iban.IBAN) error
	Update(ctx context.Context, record *iban.IBAN) error
	Delete(ctx context.Context, id int64) error

	// InTx runs fn in one transaction, committing when fn returns nil and
	// rolling back otherwise. Calls nest into the running transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, store IBANStore) error) error
}

// Package core defines the fundamental types and errors for VibeForge.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Ledger errors
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Item errors
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateItem = errors.New("duplicate item id")

	// Journal errors
	ErrEntryNotFound   = errors.New("journal entry not found")
	ErrJournalClosed   = errors.New("journal is closed")
	ErrMigrationFailed = errors.New("migration failed")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)

package errors

import "errors"

var (
	ErrInvalidSettlementInput = errors.New("invalid reward settlement input")
	ErrEntryNotFound          = errors.New("reward entry not found")
	ErrLedgerPersistence      = errors.New("reward ledger persistence failure")
)

package models

import "errors"

var (
	// ErrProviderUnavailable marks a failed fetch from the quote provider.
	ErrProviderUnavailable = errors.New("quote provider unavailable")
	// ErrQuoteUnavailable is returned when neither a fresh nor a cached quote exists.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateSymbol   = errors.New("duplicate symbol")
	ErrNotFound          = errors.New("holding not found")
	ErrRefreshInProgress = errors.New("quote refresh already in progress")

	// ErrPersistence wraps store failures. The in-memory change it accompanies
	// has been committed.
	ErrPersistence = errors.New("failed to persist portfolio")
)

package imagestore

import "errors"

var (
	// ErrInvalidInput is returned by Put when the caller violates its
	// contract: empty or malformed session, missing MIME type or data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidLocator is returned by Encode when a segment cannot be
	// represented in the locator scheme.
	ErrInvalidLocator = errors.New("invalid locator segment")
)

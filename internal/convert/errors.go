package convert

import "errors"

var (
	// ErrSourceUnavailable indicates the input file is missing or unreadable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmptyInput indicates the input holds no entries or records.
	ErrEmptyInput = errors.New("no entries found")
)

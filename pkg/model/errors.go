package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrDuplicateID is returned when a record or vector already exists for
	// the document ID. The ingestion gate treats this as a benign outcome.
	ErrDuplicateID = goerr.New("duplicate document ID")

	// ErrNotFound is returned when no record exists for the document ID.
	ErrNotFound = goerr.New("document not found")

	// ErrDimensionMismatch is returned when a vector does not match the
	// index dimension.
	ErrDimensionMismatch = goerr.New("vector dimension mismatch")

	// ErrEmptyIndex is returned when querying an index with no vectors.
	ErrEmptyIndex = goerr.New("vector index is empty")

	// ErrInvalidSchema is returned when the upstream insight payload is
	// missing a field or malformed.
	ErrInvalidSchema = goerr.New("invalid insight schema")
)

package domain

import "errors"

var (
	// ErrNoNeighborhoods means the reference neighborhood table is empty, so a
	// summary refresh has nothing to rank.
	ErrNoNeighborhoods = errors.New("no neighborhoods loaded")

	// ErrNotFound is returned by lookups for a neighborhood that does not exist.
	ErrNotFound = errors.New("not found")

	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidCategory  = errors.New("invalid category")

	// ErrInvalidRequest marks caller input that can never succeed as given.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOutsideNYC rejects coordinates outside the city's bounding box.
	ErrOutsideNYC = errors.New("coordinates must be within New York City")
)

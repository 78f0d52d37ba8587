package domain

import "errors"

var (
	// ErrUnsupportedChain is returned for chain ids outside the configured networks
	ErrUnsupportedChain = errors.New("unsupported chain id")

	// ErrSnapshotNotFound is returned when a persisted snapshot does not exist yet
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrBillNotFound is returned when no mint event exists for a bill token id
	ErrBillNotFound = errors.New("bill not found")

	// ErrNoIndexerData is the soft failure of a gateway query that returned no
	// usable data; callers fall back to a secondary source
	ErrNoIndexerData = errors.New("indexer returned no data")
)

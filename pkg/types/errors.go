package types

import "errors"

// Sentinel errors for lookups against primary records. A not-found
// subject during validation is a soft failure: the scanning loop
// reports an invalid result for that check and continues.
var (
	ErrRoundNotFound   = errors.New("round not found")
	ErrBetNotFound     = errors.New("bet not found")
	ErrAccountNotFound = errors.New("account not found")
)

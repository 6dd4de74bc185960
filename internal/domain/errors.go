package domain

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound         = errors.New("item not found")
	ErrSnapshotUnavailable  = errors.New("no planning snapshot available")
	ErrRefreshInProgress    = errors.New("refresh already in progress")
	ErrRefreshFailure       = errors.New("refresh failed")
	ErrComputationFault     = errors.New("computation fault")
	ErrInsufficientForecast = errors.New("insufficient forecast coverage")
	ErrStaleRequest         = errors.New("superseded by a newer request")
)

// ItemFault records a computation fault isolated to one item.
type ItemFault struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

func (f ItemFault) Error() string {
	return fmt.Sprintf("item %s: %s", f.ItemID, f.Reason)
}

func (f ItemFault) Unwrap() error {
	return ErrComputationFault
}

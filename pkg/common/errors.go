package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for coordinates outside the projection, non-positive extents or unsupported
	// zoom levels. It is always detected before any tile is requested.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientExtent is returned when the requested extent is smaller than one tile in either direction.
	ErrInsufficientExtent = errors.New("insufficient extent")
	ErrTileFetch          = errors.New("tile fetch failure")
	ErrAssembly           = errors.New("assembly error")
)

// TileFetchError identifies the tile whose retrieval failed terminally.
type TileFetchError struct {
	Index   int
	QuadKey QuadKey
	Err     error
}

func (e *TileFetchError) Error() string {
	return fmt.Sprintf("couldn't fetch tile %d (quadkey %s): %v", e.Index, e.QuadKey, e.Err)
}

func (e *TileFetchError) Unwrap() error {
	return e.Err
}

func (e *TileFetchError) Is(target error) bool {
	return target == ErrTileFetch
}

package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("reservation not found")
	ErrStateConflict = errors.New("illegal reservation state transition")

	// ErrDependency marks store or inventory failures that happen after
	// persistence has begun: the operation may have partially succeeded.
	ErrDependency = errors.New("dependency failure")
)

// InsufficientSeatsError reports that the zone cannot satisfy the
// requested quantity. Nothing has been persisted when it is returned.
type InsufficientSeatsError struct {
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("not enough seats available: requested %d, available %d", e.Requested, e.Available)
}

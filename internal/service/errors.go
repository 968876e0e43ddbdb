package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an item or member reference did not resolve.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateItem means a new item name clashes with an existing item.
	ErrDuplicateItem = errors.New("item already exists")
	// ErrDuplicateMember means the name or external id is already on the roster.
	ErrDuplicateMember = errors.New("member already exists")
	// ErrOutOfRange means a requested rank lies outside the queue.
	ErrOutOfRange = errors.New("rank out of range")
	// ErrNotQueued means the member holds no entry for the item. It matches ErrNotFound.
	ErrNotQueued = fmt.Errorf("member is not queued for item: %w", ErrNotFound)
	// ErrInvalidArgument means a name or id was blank.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreFailure wraps every persistence error. The operation was rolled back.
	ErrStoreFailure = errors.New("store failure")
)

// RangeError reports a rank outside [1, Max].
type RangeError struct {
	Rank int
	Max  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rank %d out of range: must be between 1 and %d", e.Rank, e.Max)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// NotFoundError names the reference that did not resolve. It matches ErrNotFound.
type NotFoundError struct {
	Kind string // "item" or "member"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// classify passes domain errors through and marks everything else as a store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{ErrNotFound, ErrDuplicateItem, ErrDuplicateMember, ErrOutOfRange, ErrInvalidArgument, ErrStoreFailure} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return storeFailure(op, err)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCustomerNotFound is returned when an operation references a customer key with no record.
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	// ErrInvalidInput covers malformed keys, negative unit counts and bad enum values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoRewardsAvailable is returned by a claim when the reward pool is empty.
	ErrNoRewardsAvailable = errors.New("no rewards available")
	// ErrStorageUnavailable wraps transient storage failures. Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

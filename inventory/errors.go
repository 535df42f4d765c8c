/*
errors.go - Centralized error types for the inventory domain

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses; the store wraps low-level
  failures in StorageError so SQL details never reach callers.

ERROR CATEGORIES:
  1. Not found     - referenced entity absent (404-equivalent)
  2. Insufficient  - sale would drive stock negative (400-equivalent)
  3. Validation    - bad input shape (400-equivalent)
  4. Storage       - database-level failure (500-equivalent)

USAGE:
  if errors.Is(err, inventory.ErrInsufficientStock) { ... }

  var nf *inventory.NotFoundError
  if errors.As(err, &nf) { ... nf.Entity, nf.ID ... }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a sale would exceed available
	// stock. Only the sale-creation path is guarded.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrValidation is returned for malformed input (missing required
	// field, non-positive quantity, negative price).
	ErrValidation = errors.New("validation failed")

	// ErrStorage is returned when the underlying store fails.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "product", "purchase", "sale", ...
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError reports requested vs available quantity.
// A missing product is treated as zero stock and produces the same error.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a store-level failure. Op names the failed operation
// for logs; the wrapped error is never serialized to API clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err is the caller's fault (4xx-equivalent).
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound)
}

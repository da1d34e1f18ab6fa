package medialocker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrUnauthorized indicates the owner identity is missing or invalid.
	// Checked before any write.
	ErrUnauthorized = errors.New("owner identity required")

	// ErrAssetNotFound indicates a mutation target does not exist under
	// the requesting owner. Distinct from ErrUnauthorized.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrValidation indicates a malformed request (missing required
	// fields, bad id arrays).
	ErrValidation = errors.New("validation failed")

	// ErrSigning indicates the link issuer failed to produce a URL.
	ErrSigning = errors.New("link signing failed")
)

// AssetError wraps an error from an asset operation with its context.
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

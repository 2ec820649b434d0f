package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/netesim/backend/internal/domain/catalog"
)

var (
	// ErrUnavailable indicates the storefront could not be reached
	ErrUnavailable = errors.New("storefront: platform temporarily unavailable")
	// ErrRequestFailed indicates the storefront rejected a request
	ErrRequestFailed = errors.New("storefront: platform request failed")
	// ErrInvalidResponse indicates a response that could not be decoded
	ErrInvalidResponse = errors.New("storefront: invalid platform response")
)

// RequestError carries the HTTP status of a failed storefront call so callers
// can distinguish rate limiting and server faults from hard rejections.
type RequestError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("storefront: request failed with status %d", e.StatusCode)
}

// Unwrap ties every request failure to the ErrRequestFailed sentinel so
// callers can match the class without inspecting the status code.
func (e *RequestError) Unwrap() error {
	return ErrRequestFailed
}

// Retryable reports whether the failure class warrants the single bounded
// retry the client applies to listing creation.
func (e *RequestError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Listing is a storefront product created from a catalog package. Listings
// are created and deleted by the synchronizer, never mutated in place; an
// update is a fresh create (the platform offers no partial-update path here).
type Listing struct {
	// ListingID is the platform-assigned product identifier
	ListingID int64
	// Title is the display title, e.g. "Turkey eSIM Package"
	Title string
	// SKU is the catalog join key, "ESIM-" + packageID
	SKU string
	// Price is the variant price
	Price decimal.Decimal
	// Vendor is the denormalized sponsor name
	Vendor string
}

// PackageID extracts the catalog package ID from the listing's SKU
func (l Listing) PackageID() (string, bool) {
	return catalog.PackageIDFromSKU(l.SKU)
}

// Storefront manages product listings on the commerce platform
type Storefront interface {
	// ListAll returns the current listings
	ListAll(ctx context.Context) ([]Listing, error)

	// Create publishes a listing for the given catalog package
	Create(ctx context.Context, pkg catalog.Package) (*Listing, error)

	// Delete removes a listing by platform ID
	Delete(ctx context.Context, listingID int64) error
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrSourceUnavailable indicates the catalog source could not be reached
	ErrSourceUnavailable = errors.New("catalog: source temporarily unavailable")
	// ErrSourceInvalidResponse indicates a malformed catalog response envelope
	ErrSourceInvalidResponse = errors.New("catalog: invalid source response")
)

// SKUPrefix is the prefix all storefront SKUs derived from catalog packages
// carry. The SKU is the join key between the catalog and the storefront.
const SKUPrefix = "ESIM-"

// Package is an immutable snapshot of a remote catalog package. Identity is
// PackageID, assigned by the catalog source.
type Package struct {
	// PackageID is the stable, source-assigned identifier
	PackageID string
	// CountryLabel is the display label with the source's "_LZ" suffix stripped
	CountryLabel string
	// Cost is the package price in the source's currency
	Cost decimal.Decimal
	// DataBytes is the included data volume in bytes
	DataBytes int64
	// PeriodDays is the validity period in days
	PeriodDays int
	// SponsorName is the sponsoring network operator
	SponsorName string
	// Deleted marks a source-side tombstone
	Deleted bool
}

// SKU returns the storefront SKU derived from this package
func (p Package) SKU() string {
	return SKUPrefix + p.PackageID
}

// DataGB renders DataBytes as gigabytes with two decimals, e.g. "5.00"
func (p Package) DataGB() string {
	gb := float64(p.DataBytes) / (1024 * 1024 * 1024)
	return fmt.Sprintf("%.2f", gb)
}

// Changed reports whether any field relevant for storefront listings differs
// from a previously synced snapshot of the same package. A nil previous
// snapshot (first sync) always counts as changed.
func (p Package) Changed(prev *Package) bool {
	if prev == nil {
		return true
	}
	return !p.Cost.Equal(prev.Cost) ||
		p.DataBytes != prev.DataBytes ||
		p.PeriodDays != prev.PeriodDays ||
		p.CountryLabel != prev.CountryLabel ||
		p.SponsorName != prev.SponsorName ||
		p.Deleted != prev.Deleted
}

// PackageIDFromSKU extracts the catalog package ID from a storefront SKU.
// Returns false if the SKU does not carry the expected prefix.
func PackageIDFromSKU(sku string) (string, bool) {
	if !strings.HasPrefix(sku, SKUPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(sku, SKUPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// Source is a read-only accessor for the remote package inventory
type Source interface {
	// ListActive fetches the full package set and filters tombstoned entries.
	// The tombstone filter is applied locally; server-side filtering is not
	// assumed.
	ListActive(ctx context.Context) ([]Package, error)
}

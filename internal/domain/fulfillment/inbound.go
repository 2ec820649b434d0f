package fulfillment

import (
	"strings"

	"github.com/netesim/backend/internal/domain/catalog"
)

// InboundOrder is the order-created event delivered by the storefront's
// webhook transport, already signature-verified by the time it reaches the
// processor.
type InboundOrder struct {
	ID          int64           `json:"id" validate:"required"`
	Email       string          `json:"email" validate:"required,email"`
	OrderNumber int             `json:"order_number"`
	Customer    InboundCustomer `json:"customer"`
	LineItems   []InboundItem   `json:"line_items" validate:"required,min=1,dive"`
}

// InboundCustomer carries the customer name fields of the order event
type InboundCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// InboundItem is one purchased line item
type InboundItem struct {
	SKU   string `json:"sku" validate:"required"`
	Title string `json:"title"`
}

// CustomerName joins the customer's first and last name, falling back to
// empty when the storefront delivered no customer block.
func (o InboundOrder) CustomerName() string {
	name := strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	return name
}

// PackageID extracts the catalog package ID from the item SKU. Items whose
// SKU does not carry the catalog prefix are not fulfillable.
func (i InboundItem) PackageID() (string, bool) {
	return catalog.PackageIDFromSKU(i.SKU)
}

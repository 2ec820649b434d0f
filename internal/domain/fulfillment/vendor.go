package fulfillment

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed indicates the vendor rejected our credentials. Blocks all
	// vendor calls until resolved.
	ErrAuthFailed = errors.New("fulfillment: vendor authentication failed")
	// ErrVendorUnavailable indicates a network-class failure after the
	// bounded retries were exhausted
	ErrVendorUnavailable = errors.New("fulfillment: vendor temporarily unavailable")
	// ErrVendorInvalidResponse indicates a response envelope that could not
	// be decoded
	ErrVendorInvalidResponse = errors.New("fulfillment: invalid vendor response")
)

// RejectionError is an application-level purchase rejection from the vendor
// (bad package ID, insufficient balance, ...). Never retried; terminal for
// the line item.
type RejectionError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *RejectionError) Error() string {
	return fmt.Sprintf("fulfillment: vendor rejected purchase (code %d): %s", e.Code, e.Message)
}

// ESIMDetails is the provisioned eSIM payload returned by a successful
// purchase, stored verbatim in the ledger and sent to the customer.
type ESIMDetails struct {
	QRCode         string `json:"qr_code"`
	ActivationCode string `json:"activation_code"`
	ICCID          string `json:"iccid"`
	PackageName    string `json:"package_name"`
	DataBytes      int64  `json:"data_bytes"`
	ValidityDays   int    `json:"validity_days"`
	NetworkName    string `json:"network_name"`
}

// DataGB renders the included data volume as gigabytes with two decimals
func (d ESIMDetails) DataGB() string {
	gb := float64(d.DataBytes) / (1024 * 1024 * 1024)
	return fmt.Sprintf("%.2f", gb)
}

// PurchaseResult is the outcome of a successful vendor purchase
type PurchaseResult struct {
	TransactionID string
	ESIM          ESIMDetails
}

// Vendor authenticates against and executes purchases on the third-party
// fulfillment system.
type Vendor interface {
	// Authenticate obtains a fresh token, failing with ErrAuthFailed when the
	// credentials are rejected
	Authenticate(ctx context.Context) error

	// CheckAndRefresh ensures a valid token exists, re-authenticating when
	// the token is absent or past its local validity window
	CheckAndRefresh(ctx context.Context) error

	// Purchase provisions one package for a customer. Application-level
	// rejections surface as *RejectionError; network failures as
	// ErrVendorUnavailable after bounded retries.
	Purchase(ctx context.Context, packageID, email, name string) (*PurchaseResult, error)
}

// Notification is the payload handed to the notification collaborator after
// a completed purchase.
type Notification struct {
	Email        string
	OrderNumber  int
	PackageTitle string
	Result       PurchaseResult
}

// Notifier delivers fulfillment details to the customer. A notifier failure
// never rolls back a completed purchase.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

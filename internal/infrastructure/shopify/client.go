package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/domain/storefront"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// pageLimit is the Admin API's maximum page size for product listings
const pageLimit = 250

// createRetryPause is the fixed wait before the single retry of a throttled
// or faulted create call
const createRetryPause = 2 * time.Second

// Config holds Shopify Admin API settings
type Config struct {
	ShopDomain  string // e.g. "my-store.myshopify.com"
	AccessToken string
	APIVersion  string
	// BaseURL overrides the Admin API base derived from ShopDomain.
	// Used by tests pointing the client at a local server.
	BaseURL string
	// MinInterval is the client-side spacing between outbound calls
	MinInterval    time.Duration
	TimeoutSeconds int
}

// Validate checks that the required settings are present
func (c *Config) Validate() error {
	if c.ShopDomain == "" {
		return errors.New("shopify: shop domain is required")
	}
	if c.AccessToken == "" {
		return errors.New("shopify: access token is required")
	}
	return nil
}

// baseURL returns the Admin API base for the configured shop
func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s", c.ShopDomain, c.APIVersion)
}

// Client manages product listings through the Shopify Admin API. All
// outbound calls share a minimum-spacing throttle so bursts from the
// synchronizer stay under the platform's rate limits.
type Client struct {
	config     *Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	// throttleMu serializes the spacing bookkeeping
	throttleMu  sync.Mutex
	lastRequest time.Time
}

var _ storefront.Storefront = (*Client)(nil)

// NewClient creates a Shopify Admin API client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.APIVersion == "" {
		config.APIVersion = "2024-01"
	}
	if config.MinInterval == 0 {
		config.MinInterval = 500 * time.Millisecond
	}
	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = 30
	}

	return &Client{
		config:     config,
		baseURL:    config.baseURL(),
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger.Named("shopify"),
	}, nil
}

// throttle blocks until the minimum spacing since the previous outbound call
// has passed.
func (c *Client) throttle(ctx context.Context) error {
	c.throttleMu.Lock()
	wait := c.config.MinInterval - time.Since(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = time.Now().Add(wait)
	c.throttleMu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrUnavailable, err)
	}
	return resp, nil
}

// requestError drains the response body into a *storefront.RequestError
func requestError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	return &storefront.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type productEnvelope struct {
	Product product `json:"product"`
}

type productListEnvelope struct {
	Products []product `json:"products"`
}

type product struct {
	ID          int64           `json:"id,omitempty"`
	Title       string          `json:"title"`
	BodyHTML    string          `json:"body_html,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	ProductType string          `json:"product_type,omitempty"`
	Status      string          `json:"status,omitempty"`
	Options     []productOption `json:"options,omitempty"`
	Variants    []variant       `json:"variants,omitempty"`
	Tags        string          `json:"tags,omitempty"`
}

type productOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type variant struct {
	Option1             string          `json:"option1,omitempty"`
	Price               decimal.Decimal `json:"price"`
	SKU                 string          `json:"sku"`
	InventoryManagement string          `json:"inventory_management,omitempty"`
	InventoryPolicy     string          `json:"inventory_policy,omitempty"`
	InventoryQuantity   int             `json:"inventory_quantity,omitempty"`
	RequiresShipping    bool            `json:"requires_shipping"`
}

// toListing maps an API product to the domain listing. The synchronizer
// creates single-variant products, so the first variant carries the SKU.
func (p product) toListing() storefront.Listing {
	listing := storefront.Listing{
		ListingID: p.ID,
		Title:     p.Title,
		Vendor:    p.Vendor,
	}
	if len(p.Variants) > 0 {
		listing.SKU = p.Variants[0].SKU
		listing.Price = p.Variants[0].Price
	}
	return listing
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// ListAll returns the shop's current product listings, following the Admin
// API's cursor pagination until the last page.
func (c *Client) ListAll(ctx context.Context) ([]storefront.Listing, error) {
	var listings []storefront.Listing
	path := fmt.Sprintf("/products.json?limit=%d", pageLimit)
	for {
		page, next, err := c.listPage(ctx, path)
		if err != nil {
			return nil, err
		}
		listings = append(listings, page...)
		if next == "" {
			return listings, nil
		}
		path = fmt.Sprintf("/products.json?limit=%d&page_info=%s", pageLimit, url.QueryEscape(next))
	}
}

// listPage fetches one product page and returns the cursor for the next one
func (c *Client) listPage(ctx context.Context, path string) ([]storefront.Listing, string, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", requestError(resp)
	}

	var envelope productListEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("%w: %v", storefront.ErrInvalidResponse, err)
	}

	listings := make([]storefront.Listing, 0, len(envelope.Products))
	for _, p := range envelope.Products {
		listings = append(listings, p.toListing())
	}
	return listings, nextPageInfo(resp.Header.Get("Link")), nil
}

// nextPageInfo extracts the page_info cursor from a Link header's rel="next"
// entry. An empty result means the current page is the last one.
func nextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

// Create publishes a single-variant listing for a catalog package. A 429 or
// 5xx response is retried once after a fixed pause; sustained throttling
// surfaces the error to the caller.
func (c *Client) Create(ctx context.Context, pkg catalog.Package) (*storefront.Listing, error) {
	payload, err := json.Marshal(productEnvelope{Product: buildProduct(pkg)})
	if err != nil {
		return nil, err
	}

	created, err := c.postProduct(ctx, payload)
	if err != nil {
		var reqErr *storefront.RequestError
		if errors.As(err, &reqErr) && reqErr.Retryable() {
			c.logger.Warn("listing create throttled, retrying once",
				zap.String("package_id", pkg.PackageID),
				zap.Int("status", reqErr.StatusCode),
			)
			select {
			case <-time.After(createRetryPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			created, err = c.postProduct(ctx, payload)
		}
		if err != nil {
			return nil, err
		}
	}

	c.logger.Info("listing created",
		zap.String("package_id", pkg.PackageID),
		zap.Int64("listing_id", created.ListingID),
	)
	return created, nil
}

func (c *Client) postProduct(ctx context.Context, payload []byte) (*storefront.Listing, error) {
	resp, err := c.do(ctx, http.MethodPost, "/products.json", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, requestError(resp)
	}

	var envelope productEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrInvalidResponse, err)
	}
	listing := envelope.Product.toListing()
	return &listing, nil
}

// Delete removes a listing by product ID
func (c *Client) Delete(ctx context.Context, listingID int64) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d.json", listingID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return requestError(resp)
	}

	c.logger.Info("listing deleted", zap.Int64("listing_id", listingID))
	return nil
}

// buildProduct renders the product payload for one catalog package
func buildProduct(pkg catalog.Package) product {
	option := fmt.Sprintf("%sGB / %d Days", pkg.DataGB(), pkg.PeriodDays)
	return product{
		Title: fmt.Sprintf("%s eSIM Package", pkg.CountryLabel),
		BodyHTML: fmt.Sprintf(
			"<strong>Country:</strong> %s<br><strong>Sponsor:</strong> %s<br><p>Check the options for different data packages.</p>",
			pkg.CountryLabel, pkg.SponsorName,
		),
		Vendor:      pkg.SponsorName,
		ProductType: "eSIM",
		Status:      "active",
		Options: []productOption{
			{Name: "Data Package", Values: []string{option}},
		},
		Variants: []variant{{
			Option1:             option,
			Price:               pkg.Cost,
			SKU:                 pkg.SKU(),
			InventoryManagement: "shopify",
			// digital good: always oversellable, never shipped
			InventoryPolicy:   "continue",
			InventoryQuantity: 999,
			RequiresShipping:  false,
		}},
		Tags: fmt.Sprintf("eSIM, %s", pkg.CountryLabel),
	}
}

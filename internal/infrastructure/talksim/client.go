package talksim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/domain/fulfillment"
)

// maxResponseSize is the maximum allowed response size from the TalkSim API (10MB)
const maxResponseSize = 10 * 1024 * 1024

const (
	authPath     = "/api/auth/local"
	purchasePath = "/api/purchaseb2b"
	packagesPath = "/package"
)

// Config holds TalkSim API settings
type Config struct {
	BaseURL  string
	Email    string
	Password string
	DealerID string
	// TokenTTL is the local token validity window. The API does not report
	// its own expiry, so a conservative local window is assumed.
	TokenTTL       time.Duration
	TimeoutSeconds int
}

// Validate checks that the required settings are present
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("talksim: base URL is required")
	}
	if c.Email == "" || c.Password == "" {
		return errors.New("talksim: credentials are required")
	}
	return nil
}

// Client talks to the TalkSim API. It serves both as the catalog source and
// as the fulfillment vendor, sharing one authenticated session.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	// mu guards token and tokenExpiry
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var (
	_ fulfillment.Vendor = (*Client)(nil)
	_ catalog.Source     = (*Client)(nil)
)

// NewClient creates a TalkSim API client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ttl := config.TokenTTL
	if ttl == 0 {
		ttl = 60 * time.Minute
	}
	config.TokenTTL = ttl

	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = 30
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger.Named("talksim"),
	}, nil
}

type authRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type authResponse struct {
	JWT string `json:"jwt"`
}

// Authenticate obtains a fresh JWT from the auth endpoint and records a
// local expiry time.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(authRequest{Identifier: c.config.Email, Password: c.config.Password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fulfillment.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("authentication rejected", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", fulfillment.ErrAuthFailed, resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&auth); err != nil {
		return fmt.Errorf("%w: %v", fulfillment.ErrVendorInvalidResponse, err)
	}
	if auth.JWT == "" {
		return fmt.Errorf("%w: no JWT in auth response", fulfillment.ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = auth.JWT
	c.tokenExpiry = time.Now().Add(c.config.TokenTTL)
	c.mu.Unlock()

	c.logger.Info("authenticated", zap.Duration("token_ttl", c.config.TokenTTL))
	return nil
}

// CheckAndRefresh re-authenticates when no token is held or the local
// validity window has passed.
func (c *Client) CheckAndRefresh(ctx context.Context) error {
	c.mu.Lock()
	valid := c.token != "" && time.Now().Before(c.tokenExpiry)
	c.mu.Unlock()

	if valid {
		return nil
	}
	return c.Authenticate(ctx)
}

// currentToken returns the held token, which may be empty
func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// invalidateToken drops the held token so the next call re-authenticates
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// statusEnvelope is the status block every TalkSim response carries
type statusEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

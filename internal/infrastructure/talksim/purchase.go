package talksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/fulfillment"
)

const (
	// maxNetworkAttempts bounds retries of network-class failures
	maxNetworkAttempts = 3
	// networkBackoffStep grows the pause linearly: 1s, 2s, 3s
	networkBackoffStep = time.Second
)

// purchaseRequest is the envelope the purchase endpoint expects. PackageName
// and Status are filled in by the API.
type purchaseRequest struct {
	Data purchaseRequestData `json:"data"`
}

type purchaseRequestData struct {
	PackageID    string `json:"packageId"`
	Price        int    `json:"price"`
	DealerID     string `json:"dealerId"`
	PackageName  string `json:"packageName"`
	Status       string `json:"status"`
	CustomerName string `json:"customerName"`
}

type purchaseResponse struct {
	Status         statusEnvelope `json:"status"`
	TransactionID  string         `json:"transactionid"`
	QRCode         string         `json:"qrcode"`
	ActivationCode string         `json:"activationcode"`
	ICCID          string         `json:"iccid"`
	PackageName    string         `json:"packagename"`
	DataByte       int64          `json:"databyte"`
	ValidityDays   int            `json:"validitydays"`
	NetworkName    string         `json:"networkname"`
}

// Purchase provisions one eSIM package. Network failures are retried up to
// three times with linear backoff; an expired-token 401 triggers exactly one
// re-authentication and one repeat of the call; application-level rejections
// are surfaced as *fulfillment.RejectionError and never retried.
func (c *Client) Purchase(ctx context.Context, packageID, email, name string) (*fulfillment.PurchaseResult, error) {
	if err := c.CheckAndRefresh(ctx); err != nil {
		return nil, err
	}

	if name == "" {
		// the vendor insists on a customer name; fall back to the mailbox part
		name = strings.SplitN(email, "@", 2)[0]
	}

	body, err := json.Marshal(purchaseRequest{Data: purchaseRequestData{
		PackageID:    packageID,
		DealerID:     c.config.DealerID,
		CustomerName: name,
	}})
	if err != nil {
		return nil, err
	}

	c.logger.Info("purchasing eSIM",
		zap.String("package_id", packageID),
		zap.String("email", email),
	)

	reauthed := false
	var lastErr error
	for attempt := 1; attempt <= maxNetworkAttempts; attempt++ {
		resp, err := c.postPurchase(ctx, body)
		if err != nil {
			lastErr = err
			c.logger.Warn("purchase attempt failed",
				zap.Int("attempt", attempt),
				zap.String("package_id", packageID),
				zap.Error(err),
			)
			if attempt < maxNetworkAttempts {
				select {
				case <-time.After(time.Duration(attempt) * networkBackoffStep):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", fulfillment.ErrVendorUnavailable, resp.StatusCode)
			if attempt < maxNetworkAttempts {
				select {
				case <-time.After(time.Duration(attempt) * networkBackoffStep):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if reauthed {
				return nil, fmt.Errorf("%w: token rejected after re-authentication", fulfillment.ErrAuthFailed)
			}
			reauthed = true
			c.invalidateToken()
			if err := c.Authenticate(ctx); err != nil {
				return nil, err
			}
			// repeat the same purchase call exactly once with the new token
			attempt--
			continue
		}

		result, err := decodePurchase(resp)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", fulfillment.ErrVendorUnavailable, maxNetworkAttempts, lastErr)
}

func (c *Client) postPurchase(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+purchasePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.currentToken())

	return c.httpClient.Do(req)
}

func decodePurchase(resp *http.Response) (*fulfillment.PurchaseResult, error) {
	defer resp.Body.Close()

	var purchase purchaseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&purchase); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrVendorInvalidResponse, err)
	}

	if purchase.Status.Code != 0 {
		return nil, &fulfillment.RejectionError{
			Code:    purchase.Status.Code,
			Message: purchase.Status.Message,
		}
	}

	return &fulfillment.PurchaseResult{
		TransactionID: purchase.TransactionID,
		ESIM: fulfillment.ESIMDetails{
			QRCode:         purchase.QRCode,
			ActivationCode: purchase.ActivationCode,
			ICCID:          purchase.ICCID,
			PackageName:    purchase.PackageName,
			DataBytes:      purchase.DataByte,
			ValidityDays:   purchase.ValidityDays,
			NetworkName:    purchase.NetworkName,
		},
	}, nil
}

package talksim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
)

// countryLabelSuffix is the internal suffix the source appends to its
// display labels, stripped before the label reaches the storefront.
const countryLabelSuffix = "_LZ"

// packageListResponse is the catalog listing envelope
type packageListResponse struct {
	Status   statusEnvelope `json:"status"`
	Listing  *templateList  `json:"listPrepaidPackageTemplate"`
}

type templateList struct {
	Template []packageTemplate `json:"template"`
}

// packageTemplate is one package as the source represents it
type packageTemplate struct {
	PrepaidPackageTemplateID int64           `json:"prepaidpackagetemplateid"`
	UserUiName               string          `json:"userUiName"`
	Cost                     decimal.Decimal `json:"cost"`
	DataByte                 int64           `json:"databyte"`
	PeriodDays               int             `json:"perioddays"`
	Sponsors                 *sponsorBlock   `json:"sponsors"`
	Deleted                  bool            `json:"deleted"`
}

type sponsorBlock struct {
	SponsorName string `json:"sponsorname"`
}

// ListActive fetches the full package listing and filters tombstoned entries
// locally; server-side filtering is not assumed.
func (c *Client) ListActive(ctx context.Context) ([]catalog.Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+packagesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", catalog.ErrSourceUnavailable, resp.StatusCode)
	}

	var listing packageListResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrSourceInvalidResponse, err)
	}
	if listing.Status.Code != 0 || listing.Listing == nil {
		return nil, fmt.Errorf("%w: unexpected envelope (code %d)", catalog.ErrSourceInvalidResponse, listing.Status.Code)
	}

	packages := make([]catalog.Package, 0, len(listing.Listing.Template))
	for _, tpl := range listing.Listing.Template {
		if tpl.Deleted {
			continue
		}
		packages = append(packages, tpl.toDomain())
	}

	c.logger.Info("fetched catalog",
		zap.Int("total", len(listing.Listing.Template)),
		zap.Int("active", len(packages)),
	)
	return packages, nil
}

// toDomain maps a source template to a domain package
func (t packageTemplate) toDomain() catalog.Package {
	label := strings.ReplaceAll(t.UserUiName, countryLabelSuffix, "")
	if label == "" {
		label = "Unknown"
	}
	sponsor := "Unknown"
	if t.Sponsors != nil && t.Sponsors.SponsorName != "" {
		sponsor = t.Sponsors.SponsorName
	}
	return catalog.Package{
		PackageID:    strconv.FormatInt(t.PrepaidPackageTemplateID, 10),
		CountryLabel: label,
		Cost:         t.Cost,
		DataBytes:    t.DataByte,
		PeriodDays:   t.PeriodDays,
		SponsorName:  sponsor,
	}
}

package xtreamui

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/types"
)

var packageOptRe = regexp.MustCompile(`(?is)<select[^>]*name="package"[^>]*>(.*?)</select>`)

// GetPackages scrapes the package dropdown from the new-line form and
// enriches each entry through the panel's package-detail endpoint.
func (c *Client) GetPackages(ctx context.Context) ([]panel.Package, error) {
	return c.packages(ctx, "/user_reseller.php", "get_package", false)
}

// GetTrialPackages lists packages offered on the trial-line form.
func (c *Client) GetTrialPackages(ctx context.Context) ([]panel.Package, error) {
	return c.packages(ctx, "/user_reseller.php?trial=1", "get_package_trial", true)
}

func (c *Client) packages(ctx context.Context, page, detailAction string, trial bool) ([]panel.Package, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	_, body, err := c.get(ctx, page)
	if err != nil {
		return nil, err
	}

	sel := packageOptRe.FindStringSubmatch(string(body))
	if sel == nil {
		return nil, ierr.NewError("package list not present on panel page").
			WithHint("The session may have expired or the panel layout changed").
			Mark(ierr.ErrRemoteOperation)
	}

	packages := make([]panel.Package, 0)
	for _, m := range memberOptRe.FindAllStringSubmatch(sel[1], -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pkg := panel.Package{
			ID:      id,
			Name:    strings.TrimSpace(m[2]),
			IsTrial: trial,
		}
		if detail, err := c.packageDetail(ctx, detailAction, pkg.ID); err == nil {
			pkg.Credits = detail.Credits
			pkg.DurationDays = detail.DurationDays
			pkg.MaxConnections = detail.MaxConnections
		} else {
			c.logger.Warnw("package detail lookup failed",
				"package_id", pkg.ID, "error", err)
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

type packageDetail struct {
	Credits        decimal.Decimal
	DurationDays   int
	MaxConnections int
	Bouquets       []panel.Bouquet
}

func (c *Client) packageDetail(ctx context.Context, action string, packageID int) (*packageDetail, error) {
	resp, body, err := c.get(ctx, "/api.php?action="+action+"&package_id="+strconv.Itoa(packageID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewError("package detail request failed").
			WithReportableDetails(map[string]interface{}{"status": resp.StatusCode}).
			Mark(ierr.ErrRemoteOperation)
	}

	var payload struct {
		Result bool `json:"result"`
		Data   struct {
			CostCredits        decimal.Decimal `json:"cost_credits"`
			OfficialDuration   int             `json:"official_duration"`
			OfficialDurationIn string          `json:"official_duration_in"`
			MaxConnections     int             `json:"max_connections"`
			Bouquets           []struct {
				ID   json.Number `json:"id"`
				Name string      `json:"bouquet_name"`
			} `json:"bouquets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrRemoteOperation)
	}
	if !payload.Result {
		return nil, ierr.NewError("panel returned empty package detail").
			Mark(ierr.ErrRemoteOperation)
	}

	days := payload.Data.OfficialDuration
	if strings.EqualFold(payload.Data.OfficialDurationIn, "months") {
		days *= types.DaysPerTermMonth
	}

	detail := &packageDetail{
		Credits:        payload.Data.CostCredits,
		DurationDays:   days,
		MaxConnections: payload.Data.MaxConnections,
	}
	for _, b := range payload.Data.Bouquets {
		id, err := b.ID.Int64()
		if err != nil {
			continue
		}
		detail.Bouquets = append(detail.Bouquets, panel.Bouquet{ID: int(id), Name: b.Name})
	}
	return detail, nil
}

// GetBouquets lists the bouquets of the first available package, which on
// this panel family is the full bouquet catalog.
func (c *Client) GetBouquets(ctx context.Context) ([]panel.Bouquet, error) {
	packages, err := c.GetPackages(ctx)
	if err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return nil, ierr.NewError("panel has no packages to read bouquets from").
			Mark(ierr.ErrNotFound)
	}

	detail, err := c.packageDetail(ctx, "get_package", packages[0].ID)
	if err != nil {
		return nil, err
	}
	return detail.Bouquets, nil
}

package xuione

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
)

var (
	packageSelectRe = regexp.MustCompile(`(?is)<select[^>]*name="package"[^>]*>(.*?)</select>`)
	optionRe        = regexp.MustCompile(`(?is)<option\s+value="([^"]+)"[^>]*>\s*([^<]+?)\s*</option>`)
)

// GetPackages scrapes the package dropdown from the new-line page. The API
// exposes no package listing on this family, so the browsing session is the
// only source.
func (c *Client) GetPackages(ctx context.Context) ([]panel.Package, error) {
	return c.scrapePackages(ctx, "/line", false)
}

// GetTrialPackages scrapes the dropdown from the trial variant of the page.
func (c *Client) GetTrialPackages(ctx context.Context) ([]panel.Package, error) {
	return c.scrapePackages(ctx, "/line?trial=1", true)
}

func (c *Client) scrapePackages(ctx context.Context, path string, trial bool) ([]panel.Package, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	status, body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || isLoginPage(body) {
		// The browsing session lapsed; one fresh login, one retry.
		c.loggedIn = false
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		status, body, err = c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK || isLoginPage(body) {
			return nil, ierr.NewError("panel package page unavailable").
				WithReportableDetails(map[string]interface{}{"status": status, "path": path}).
				Mark(ierr.ErrRemoteOperation)
		}
	}

	sel := packageSelectRe.FindStringSubmatch(string(body))
	if sel == nil {
		return nil, ierr.NewError("package list not present on panel page").
			WithHint("The panel layout may have changed").
			Mark(ierr.ErrRemoteOperation)
	}

	packages := make([]panel.Package, 0)
	for _, m := range optionRe.FindAllStringSubmatch(sel[1], -1) {
		id, err := strconv.Atoi(strings.TrimSpace(m[1]))
		if err != nil {
			continue
		}
		packages = append(packages, panel.Package{
			ID:      id,
			Name:    strings.TrimSpace(m[2]),
			IsTrial: trial,
		})
	}
	return packages, nil
}

package xtreamui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
)

const (
	// searchTableLines is the DataTables id for subscriber lines.
	searchTableLines = "users"
	// searchTableResellers is the DataTables id for reseller accounts.
	searchTableResellers = "reg_users"
)

// Search result column layout, fixed by the panel's DataTables config.
const (
	colID       = 0
	colUsername = 1
	colCredits  = 6
	colExpiry   = 7
)

var (
	createdIDRe  = regexp.MustCompile(`user_reseller\.php\?id=(\d+)`)
	memberOptRe  = regexp.MustCompile(`(?is)<option\s+value="(\d+)"[^>]*>\s*([^<]+?)\s*</option>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	alertBlockRe = regexp.MustCompile(`(?is)<div[^>]*alert-danger[^>]*>(.*?)</div>`)
)

// CreateSubscriberRequest carries the fields the new-line form needs.
type CreateSubscriberRequest struct {
	Username       string
	Password       string
	PackageID      string
	Bouquets       []int
	MaxConnections int
	Note           string
}

// ExtendSubscriberRequest identifies an existing line and the package to
// apply on top of it.
type ExtendSubscriberRequest struct {
	Username       string
	Password       string
	PackageID      string
	Bouquets       []int
	MaxConnections int
	Note           string
}

// CreateSubscriber submits the new-line form. The panel signals success only
// by redirecting to the edit page of the freshly created line; anything else
// is a failure even when the status is 200.
func (c *Client) CreateSubscriber(ctx context.Context, req CreateSubscriberRequest) (*panel.CreateResult, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	memberID, err := c.resellerMemberID(ctx)
	if err != nil {
		return nil, err
	}

	form := c.subscriberForm(req.Username, req.Password, req.PackageID, req.Bouquets, req.MaxConnections, req.Note)
	form.Set("member_id", memberID)

	resp, body, err := c.postForm(ctx, "/user_reseller.php", nil, form)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusFound {
		if m := createdIDRe.FindStringSubmatch(resp.Header.Get("Location")); m != nil {
			c.logger.Infow("subscriber created", "username", req.Username, "remote_user_id", m[1])
			return &panel.CreateResult{RemoteUserID: m[1], Username: req.Username}, nil
		}
	}

	c.logger.Errorw("subscriber creation rejected by panel",
		"username", req.Username,
		"status", resp.StatusCode,
		"body_preview", preview(body, 300),
	)
	return nil, ierr.NewError("panel did not confirm subscriber creation").
		WithHint("The panel returned the form page instead of redirecting to the new line").
		WithReportableDetails(map[string]interface{}{"username": req.Username}).
		Mark(ierr.ErrRemoteOperation)
}

// ExtendSubscriber applies a package on top of an existing line. The edit
// form gives no machine-readable result, so the outcome is decided by
// re-querying the line and comparing its displayed expiry with the one
// captured before the edit.
func (c *Client) ExtendSubscriber(ctx context.Context, req ExtendSubscriberRequest) (*panel.ExtendResult, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	remoteID, prevExpiry, err := c.searchAccount(ctx, searchTableLines, req.Username)
	if err != nil {
		return nil, err
	}

	form := c.subscriberForm(req.Username, req.Password, req.PackageID, req.Bouquets, req.MaxConnections, req.Note)
	form.Set("id", remoteID)

	query := url.Values{}
	query.Set("id", remoteID)

	if _, _, err := c.postForm(ctx, "/user_reseller.php", query, form); err != nil {
		return nil, err
	}

	return c.verifyExtendByRequery(ctx, remoteID, req.Username, prevExpiry)
}

// verifyExtendByRequery decides an extension's outcome by searching the line
// again and comparing expiry strings. A changed expiry is definite success.
// An unchanged one is still reported as success with AmbiguityDetail set,
// since some package edits legitimately leave the displayed date alone.
func (c *Client) verifyExtendByRequery(ctx context.Context, remoteID, username, prevExpiry string) (*panel.ExtendResult, error) {
	_, newExpiry, err := c.searchAccount(ctx, searchTableLines, username)
	if err != nil {
		return nil, err
	}

	result := &panel.ExtendResult{RemoteUserID: remoteID, NewExpiry: newExpiry}

	if newExpiry == prevExpiry {
		result.AmbiguityDetail = fmt.Sprintf(
			"panel expiry unchanged after extension (still %q); treating as applied", prevExpiry)
		c.logger.Warnw("extension verification inconclusive",
			"username", username, "expiry", prevExpiry)
	} else {
		c.logger.Infow("extension verified",
			"username", username, "prev_expiry", prevExpiry, "new_expiry", newExpiry)
	}
	return result, nil
}

// SuspendSubscriber disables a line. remoteID may be empty, in which case the
// line is resolved by username first.
func (c *Client) SuspendSubscriber(ctx context.Context, remoteID, username string) error {
	return c.toggleSubscriber(ctx, remoteID, username, "disable")
}

// ActivateSubscriber re-enables a previously suspended line.
func (c *Client) ActivateSubscriber(ctx context.Context, remoteID, username string) error {
	return c.toggleSubscriber(ctx, remoteID, username, "enable")
}

func (c *Client) toggleSubscriber(ctx context.Context, remoteID, username, action string) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	if remoteID == "" {
		id, _, err := c.searchAccount(ctx, searchTableLines, username)
		if err != nil {
			return err
		}
		remoteID = id
	}

	query := url.Values{}
	query.Set("action", action)
	query.Set("id", remoteID)

	resp, body, err := c.postForm(ctx, "/users.php", query, url.Values{})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return ierr.NewErrorf("panel refused to %s line %s", action, remoteID).
			WithReportableDetails(map[string]interface{}{
				"status": resp.StatusCode,
				"body":   preview(body, 200),
			}).
			Mark(ierr.ErrRemoteOperation)
	}

	c.logger.Infow("line state changed", "username", username, "remote_user_id", remoteID, "action", action)
	return nil
}

// searchAccount resolves an account through the panel's DataTables search
// endpoint and returns its remote id and displayed expiry string.
func (c *Client) searchAccount(ctx context.Context, table, username string) (string, string, error) {
	rows, err := c.searchRows(ctx, table, username)
	if err != nil {
		return "", "", err
	}

	for _, row := range rows {
		if len(row) <= colExpiry {
			continue
		}
		if strings.EqualFold(stripTags(row[colUsername]), username) {
			return stripTags(row[colID]), stripTags(row[colExpiry]), nil
		}
	}

	return "", "", ierr.NewErrorf("account %s not found on panel", username).
		WithHintf("The account does not exist on panel %s", c.cfg.Name).
		Mark(ierr.ErrNotFound)
}

// searchRows runs one DataTables search and returns the raw row cells.
// An empty search value lists every account in the table.
func (c *Client) searchRows(ctx context.Context, table, search string) ([][]string, error) {
	form := url.Values{}
	form.Set("id", table)
	form.Set("draw", "1")
	form.Set("start", "0")
	form.Set("length", "5000")
	form.Set("search[value]", search)
	form.Set("search[regex]", "false")

	query := url.Values{}
	query.Set("id", table)

	resp, body, err := c.postForm(ctx, "/table_search.php", query, form)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewError("panel search failed").
			WithReportableDetails(map[string]interface{}{"status": resp.StatusCode, "table": table}).
			Mark(ierr.ErrRemoteOperation)
	}

	var payload struct {
		Data [][]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Panel search returned a non-JSON response, the session may have expired").
			Mark(ierr.ErrRemoteOperation)
	}

	rows := make([][]string, 0, len(payload.Data))
	for _, raw := range payload.Data {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			var s string
			if err := json.Unmarshal(cell, &s); err != nil {
				// Numeric cells come through unquoted.
				s = string(cell)
			}
			row = append(row, s)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resellerMemberID finds the panel-side member id of the configured admin
// account by scanning the owner dropdown on the users page. The id is needed
// as the owning member of every created line. Falls back to "0" when the
// dropdown does not list the admin, which the panel treats as self.
func (c *Client) resellerMemberID(ctx context.Context) (string, error) {
	if c.memberID != "" {
		return c.memberID, nil
	}

	_, body, err := c.get(ctx, "/users.php")
	if err != nil {
		return "", err
	}

	for _, m := range memberOptRe.FindAllStringSubmatch(string(body), -1) {
		if strings.EqualFold(strings.TrimSpace(m[2]), c.cfg.AdminUsername) {
			c.memberID = m[1]
			return c.memberID, nil
		}
	}

	c.logger.Warnw("admin account not present in owner dropdown, using member id 0",
		"admin_username", c.cfg.AdminUsername)
	c.memberID = "0"
	return c.memberID, nil
}

func (c *Client) subscriberForm(username, password, packageID string, bouquets []int, maxConnections int, note string) url.Values {
	selected, _ := json.Marshal(bouquets)

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("package", packageID)
	form.Set("bouquets_selected", string(selected))
	form.Set("max_connections", strconv.Itoa(maxConnections))
	form.Set("reseller_notes", note)
	form.Set("submit_user", "1")
	return form
}

func stripTags(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// parseExpiry turns the panel's displayed expiry into a time. The panel
// renders a handful of formats depending on its locale setting; unknown
// formats yield nil rather than an error since callers only use the parsed
// value opportunistically.
func parseExpiry(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "never") || strings.EqualFold(s, "unlimited") {
		return nil
	}
	layouts := []string{
		"02-01-2006 15:04",
		"02/01/2006 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

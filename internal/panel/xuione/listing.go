package xuione

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
)

// remoteLine is the API's representation of one subscriber line.
type remoteLine struct {
	ID             json.Number     `json:"id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	ExpDate        int64           `json:"exp_date"`
	Enabled        json.Number     `json:"enabled"`
	MaxConnections json.Number     `json:"max_connections"`
	MemberID       json.Number     `json:"member_id"`
	Owner          string          `json:"owner"`
	Credits        decimal.Decimal `json:"credits"`
}

// ListLines fetches every subscriber line, for the import sync.
func (c *Client) ListLines(ctx context.Context) ([]panel.RemoteAccount, error) {
	return c.listAccounts(ctx, "get_lines", false)
}

// ListUsers fetches every panel user account, which on this family includes
// resellers.
func (c *Client) ListUsers(ctx context.Context) ([]panel.RemoteAccount, error) {
	return c.listAccounts(ctx, "get_users", true)
}

func (c *Client) listAccounts(ctx context.Context, action string, resellers bool) ([]panel.RemoteAccount, error) {
	resp, err := c.callAPI(ctx, action, url.Values{})
	if err != nil {
		return nil, err
	}

	var lines []remoteLine
	if err := json.Unmarshal(resp.Data, &lines); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Panel %s listing payload was unreadable", c.cfg.Name).
			Mark(ierr.ErrRemoteOperation)
	}

	accounts := make([]panel.RemoteAccount, 0, len(lines))
	for _, l := range lines {
		acct := panel.RemoteAccount{
			RemoteUserID: l.ID.String(),
			Username:     l.Username,
			Password:     l.Password,
			IsReseller:   resellers,
			Credits:      l.Credits,
		}
		if l.ExpDate > 0 {
			t := unixTime(l.ExpDate)
			acct.ExpiryDate = &t
		}
		if enabled, err := l.Enabled.Int64(); err == nil && enabled == 0 {
			acct.Status = "disabled"
		} else {
			acct.Status = "active"
		}
		if mc, err := l.MaxConnections.Int64(); err == nil {
			acct.MaxConnections = int(mc)
		}
		if member, err := l.MemberID.Int64(); err == nil && member > 1 {
			// Lines owned by a member other than the panel admin were made
			// by a reseller, not by this system.
			acct.CreatedByReseller = l.Owner
			if acct.CreatedByReseller == "" {
				acct.CreatedByReseller = "member:" + l.MemberID.String()
			}
		}
		accounts = append(accounts, acct)
	}

	c.logger.Debugw("panel listing fetched", "action", action, "count", len(accounts))
	return accounts, nil
}

func unixTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

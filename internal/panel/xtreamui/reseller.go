package xtreamui

import (
	"context"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
)

// CreateResellerRequest carries the fields for a new sub-reseller account.
type CreateResellerRequest struct {
	Username string
	Password string
	Email    string
	Credits  decimal.Decimal
	MaxLines int
}

// CreateReseller submits the sub-reseller form. The panel answers the form
// page again on both success and failure; the only failure signal is an
// alert block rendered into the page, so absence of that block is success.
func (c *Client) CreateReseller(ctx context.Context, req CreateResellerRequest) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)
	form.Set("email", req.Email)
	form.Set("credits", req.Credits.String())
	form.Set("max_users", itoaOrEmpty(req.MaxLines))
	form.Set("submit_reseller", "1")

	resp, body, err := c.postForm(ctx, "/subreseller.php", nil, form)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return ierr.NewError("panel rejected reseller creation").
			WithReportableDetails(map[string]interface{}{"status": resp.StatusCode}).
			Mark(ierr.ErrRemoteOperation)
	}

	if m := alertBlockRe.FindStringSubmatch(string(body)); m != nil {
		msg := stripTags(m[1])
		c.logger.Errorw("panel reported reseller creation error",
			"username", req.Username, "panel_message", msg)
		return ierr.NewError("panel rejected reseller creation").
			WithHint(msg).
			WithReportableDetails(map[string]interface{}{"username": req.Username}).
			Mark(ierr.ErrRemoteOperation)
	}

	c.logger.Infow("reseller created", "username", req.Username, "credits", req.Credits)
	return nil
}

// AddCredits purchases credits onto an existing reseller account, resolving
// the account id by username first. Used when a customer re-buys a reseller
// product they already hold on this panel instance.
func (c *Client) AddCredits(ctx context.Context, username string, credits decimal.Decimal) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	remoteID, _, err := c.searchAccount(ctx, searchTableResellers, username)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("id", remoteID)
	form.Set("credits", credits.String())
	form.Set("submit_credits", "Purchase")

	query := url.Values{}
	query.Set("id", remoteID)

	resp, body, err := c.postForm(ctx, "/credits_add.php", query, form)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return ierr.NewError("panel rejected credit top-up").
			WithReportableDetails(map[string]interface{}{
				"status":   resp.StatusCode,
				"username": username,
			}).
			Mark(ierr.ErrRemoteOperation)
	}
	if m := alertBlockRe.FindStringSubmatch(string(body)); m != nil {
		return ierr.NewError("panel rejected credit top-up").
			WithHint(stripTags(m[1])).
			Mark(ierr.ErrRemoteOperation)
	}

	c.logger.Infow("reseller credits added",
		"username", username, "remote_user_id", remoteID, "credits", credits)
	return nil
}

func itoaOrEmpty(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

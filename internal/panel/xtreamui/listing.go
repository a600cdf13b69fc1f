package xtreamui

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/types"
)

// ListSubscribers returns every line on the panel, as shown by an empty
// search against the lines table. Used by the import sync.
func (c *Client) ListSubscribers(ctx context.Context) ([]panel.RemoteAccount, error) {
	return c.listAccounts(ctx, searchTableLines, false)
}

// ListResellers returns every reseller account on the panel.
func (c *Client) ListResellers(ctx context.Context) ([]panel.RemoteAccount, error) {
	return c.listAccounts(ctx, searchTableResellers, true)
}

func (c *Client) listAccounts(ctx context.Context, table string, resellers bool) ([]panel.RemoteAccount, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	rows, err := c.searchRows(ctx, table, "")
	if err != nil {
		return nil, err
	}

	accounts := make([]panel.RemoteAccount, 0, len(rows))
	for _, row := range rows {
		if len(row) <= colExpiry {
			continue
		}
		acct := panel.RemoteAccount{
			RemoteUserID: stripTags(row[colID]),
			Username:     stripTags(row[colUsername]),
			Status:       "active",
			IsReseller:   resellers,
		}
		if exp := parseExpiry(stripTags(row[colExpiry])); exp != nil {
			acct.ExpiryDate = exp
		}
		if resellers {
			if credits, err := decimal.NewFromString(stripTags(row[colCredits])); err == nil {
				acct.Credits = credits
			}
		}
		accounts = append(accounts, acct)
	}

	c.logger.Debugw("panel listing fetched",
		"table", table, "count", len(accounts), "panel_family", types.PanelFamilyXtreamUI)
	return accounts, nil
}

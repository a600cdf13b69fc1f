package xuione

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
)

// CreateLineRequest carries the fields for a new line.
type CreateLineRequest struct {
	Username       string
	Password       string
	PackageID      string
	Bouquets       []int
	MaxConnections int
	Note           string
	Trial          bool
}

// ExtendLineRequest identifies an existing line and the package to apply.
type ExtendLineRequest struct {
	RemoteUserID string
	Username     string
	PackageID    string
}

// CreateLine creates a subscriber line through the API and returns its
// remote id from the response payload.
func (c *Client) CreateLine(ctx context.Context, req CreateLineRequest) (*panel.CreateResult, error) {
	selected, _ := json.Marshal(req.Bouquets)

	params := url.Values{}
	params.Set("username", req.Username)
	params.Set("password", req.Password)
	params.Set("package", req.PackageID)
	params.Set("bouquets", string(selected))
	params.Set("max_connections", strconv.Itoa(req.MaxConnections))
	params.Set("description", req.Note)
	if req.Trial {
		params.Set("trial", "1")
	}

	resp, err := c.callAPI(ctx, "new_line", params)
	if err != nil {
		return nil, err
	}

	var data struct {
		ID       json.Number `json:"id"`
		Username string      `json:"username"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Panel confirmed line creation but the payload was unreadable").
				Mark(ierr.ErrRemoteOperation)
		}
	}

	result := &panel.CreateResult{RemoteUserID: data.ID.String(), Username: req.Username}
	c.logger.Infow("line created", "username", req.Username, "remote_user_id", result.RemoteUserID)
	return result, nil
}

// ExtendLine applies a package on top of an existing line. The API reports
// the outcome explicitly, so no verification pass is needed on this family.
func (c *Client) ExtendLine(ctx context.Context, req ExtendLineRequest) (*panel.ExtendResult, error) {
	remoteID := req.RemoteUserID
	if remoteID == "" {
		line, err := c.findLine(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		remoteID = line.RemoteUserID
	}

	params := url.Values{}
	params.Set("id", remoteID)
	params.Set("package", req.PackageID)

	resp, err := c.callAPI(ctx, "extend_line", params)
	if err != nil {
		return nil, err
	}

	result := &panel.ExtendResult{RemoteUserID: remoteID}
	var data struct {
		ExpDate int64 `json:"exp_date"`
	}
	if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &data) == nil && data.ExpDate > 0 {
		result.NewExpiry = unixTime(data.ExpDate).Format("2006-01-02 15:04:05")
	}

	c.logger.Infow("line extended", "remote_user_id", remoteID, "package", req.PackageID)
	return result, nil
}

// SuspendLine disables a line.
func (c *Client) SuspendLine(ctx context.Context, remoteID, username string) error {
	return c.toggleLine(ctx, remoteID, username, "0")
}

// ActivateLine re-enables a line.
func (c *Client) ActivateLine(ctx context.Context, remoteID, username string) error {
	return c.toggleLine(ctx, remoteID, username, "1")
}

func (c *Client) toggleLine(ctx context.Context, remoteID, username, enabled string) error {
	if remoteID == "" {
		line, err := c.findLine(ctx, username)
		if err != nil {
			return err
		}
		remoteID = line.RemoteUserID
	}

	params := url.Values{}
	params.Set("id", remoteID)
	params.Set("enabled", enabled)

	if _, err := c.callAPI(ctx, "edit_line", params); err != nil {
		return err
	}
	c.logger.Infow("line state changed", "remote_user_id", remoteID, "enabled", enabled)
	return nil
}

// CreateReseller is not available on this panel family: its API exposes no
// reseller-creation action and the operation must not be approximated, so
// callers fail fast before any remote call is made.
func (c *Client) CreateReseller(_ context.Context) error {
	return ierr.NewError("reseller accounts cannot be created on this panel family").
		WithHintf("Panel %s does not support reseller creation", c.cfg.Name).
		Mark(ierr.ErrUnsupported)
}

// AdjustCredits changes a reseller's credit balance by the given amount.
func (c *Client) AdjustCredits(ctx context.Context, remoteID string, credits decimal.Decimal) error {
	params := url.Values{}
	params.Set("id", remoteID)
	params.Set("credits", credits.String())

	if _, err := c.callAPI(ctx, "edit_user", params); err != nil {
		return err
	}
	c.logger.Infow("reseller credits adjusted", "remote_user_id", remoteID, "credits", credits)
	return nil
}

func (c *Client) findLine(ctx context.Context, username string) (*panel.RemoteAccount, error) {
	lines, err := c.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if strings.EqualFold(lines[i].Username, username) {
			return &lines[i], nil
		}
	}
	return nil, ierr.NewErrorf("line %s not found on panel", username).
		WithHintf("The line does not exist on panel %s", c.cfg.Name).
		Mark(ierr.ErrNotFound)
}

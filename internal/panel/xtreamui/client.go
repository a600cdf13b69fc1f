// Package xtreamui drives the cookie/session-authenticated panel family
// through its web forms. The panel has no stable JSON API for most privileged
// operations, so the client speaks the same form POSTs the panel's own UI
// does and keeps the session cookie warm across calls and process restarts.
package xtreamui

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/streambill/streambill/internal/config"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/panel/session"
)

const (
	requestTimeout = 30 * time.Second

	// The panel throttles aggressive resellers; keep at most ~5 calls/sec.
	rateInterval = 200 * time.Millisecond
)

// Client is a session-scoped client for one panel instance. Construct one per
// provisioning task; the persisted cookie blob is shared through the session
// store, the in-memory session object is not.
type Client struct {
	cfg        config.XtreamUIPanelConfig
	panelURL   string
	httpClient *http.Client
	jar        *cookiejar.Jar
	sessions   session.Store
	sessionKey string
	logger     *logger.Logger
	limiter    *rate.Limiter

	loggedIn bool
	memberID string
}

// storedCookie is the serialized form of one session cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// NewClient builds a client for the given panel instance, loading any
// previously persisted session so repeated calls do not re-login.
func NewClient(ctx context.Context, cfg config.XtreamUIPanelConfig, sessions session.Store, log *logger.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	panelURL := strings.TrimRight(cfg.PanelURL, "/")

	transport := &http.Transport{}
	if !cfg.SSLVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		cfg:      cfg,
		panelURL: panelURL,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Jar:       jar,
			Transport: transport,
			// Redirects carry meaning here: a create POST answers with a 302
			// whose Location holds the new account id.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:        jar,
		sessions:   sessions,
		sessionKey: session.SanitizeKey(panelURL),
		logger:     log.With("panel", cfg.Name, "panel_family", "xtreamui"),
		limiter:    rate.NewLimiter(rate.Every(rateInterval), 1),
	}

	if err := c.restoreSession(ctx); err != nil {
		// A corrupt session blob is not fatal; the next call logs in again.
		c.logger.Warnw("discarding unreadable panel session", "error", err)
	}

	return c, nil
}

func (c *Client) restoreSession(ctx context.Context) error {
	blob, err := c.sessions.Load(ctx, c.sessionKey)
	if err != nil || blob == nil {
		return err
	}

	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		return err
	}

	u, err := url.Parse(c.panelURL)
	if err != nil {
		return err
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	now := time.Now()
	for _, sc := range stored {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Path:    sc.Path,
			Domain:  sc.Domain,
			Expires: sc.Expires,
		})
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(u, cookies)
		c.loggedIn = c.hasSessionCookie()
	}
	return nil
}

func (c *Client) persistSession(ctx context.Context) {
	u, err := url.Parse(c.panelURL)
	if err != nil {
		return
	}

	cookies := c.jar.Cookies(u)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Domain:  ck.Domain,
			Expires: ck.Expires,
		})
	}

	blob, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := c.sessions.Save(ctx, c.sessionKey, blob); err != nil {
		c.logger.Warnw("failed to persist panel session", "error", err)
	}
}

func (c *Client) hasSessionCookie() bool {
	u, err := url.Parse(c.panelURL)
	if err != nil {
		return false
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == "PHPSESSID" || ck.Name == "hash" {
			return true
		}
	}
	return false
}

// Login establishes a panel session. Calling it while already logged in is a
// no-op that reuses the persisted cookie.
func (c *Client) Login(ctx context.Context) error {
	if c.loggedIn && c.hasSessionCookie() {
		return nil
	}

	form := url.Values{}
	form.Set("username", c.cfg.AdminUsername)
	form.Set("password", c.cfg.AdminPassword)

	resp, body, err := c.postForm(ctx, "/login.php", nil, form)
	if err != nil {
		return err
	}

	redirected := resp.StatusCode == http.StatusFound &&
		strings.Contains(strings.ToLower(resp.Header.Get("Location")), "dashboard")

	if !c.hasSessionCookie() && !redirected {
		c.logger.Warnw("panel login returned no session cookie",
			"status", resp.StatusCode,
			"body_preview", preview(body, 200),
		)
		return ierr.NewError("panel rejected login").
			WithHintf("Check admin credentials for panel %s", c.cfg.Name).
			Mark(ierr.ErrAuthentication)
	}

	c.loggedIn = true
	c.persistSession(ctx)
	c.logger.Infow("panel login successful")
	return nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.loggedIn && c.hasSessionCookie() {
		return nil
	}
	return c.Login(ctx)
}

// postForm POSTs a url-encoded form. query, when non-nil, is appended to the
// URL as well: the panel's table-search endpoint wants its parameters in both
// places.
func (c *Client) postForm(ctx context.Context, path string, query url.Values, form url.Values) (*http.Response, []byte, error) {
	target := c.panelURL + path
	if query != nil {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.panelURL+path, nil)
	if err != nil {
		return nil, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	// The panel sits behind basic auth at the proxy layer; credentials ride
	// on every request while the session cookie handles the panel itself.
	req.SetBasicAuth(c.cfg.AdminUsername, c.cfg.AdminPassword)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, ierr.WithError(err).
			WithHintf("Panel %s is unreachable", c.cfg.Name).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	return resp, body, nil
}

func preview(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Package xuione drives the access-code panel family. Privileged calls go to
// an API endpoint addressed by a per-panel access code and authenticated with
// an api_key parameter; the panel still answers some failures with an HTML
// login page and a 200 status, so every response is classified before its
// body is trusted.
package xuione

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
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
	rateInterval   = 200 * time.Millisecond

	statusSuccess = "STATUS_SUCCESS"
)

// Client talks to one access-code panel instance.
type Client struct {
	cfg        config.XuiOnePanelConfig
	panelURL   string
	apiURL     string
	httpClient *http.Client
	sessions   session.Store
	sessionKey string
	logger     *logger.Logger
	limiter    *rate.Limiter

	loggedIn bool
}

// NewClient builds a client for the given panel instance. The API endpoint is
// derived from the panel URL and the configured access code.
func NewClient(ctx context.Context, cfg config.XuiOnePanelConfig, sessions session.Store, log *logger.Logger) (*Client, error) {
	if cfg.APIAccessCode == "" || cfg.APIKey == "" {
		return nil, ierr.NewError("panel is missing api access code or key").
			WithHintf("Set the access code and api key for panel %s", cfg.Name).
			Mark(ierr.ErrConfiguration)
	}

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
		apiURL:   panelURL + "/" + strings.Trim(cfg.APIAccessCode, "/") + "/index.php",
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Jar:       jar,
			Transport: transport,
		},
		sessions:   sessions,
		sessionKey: session.SanitizeKey(panelURL),
		logger:     log.With("panel", cfg.Name, "panel_family", "xuione"),
		limiter:    rate.NewLimiter(rate.Every(rateInterval), 1),
	}
	return c, nil
}

// apiResponse is the envelope every API action answers with.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (r *apiResponse) errorMessage() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "panel reported failure without a message"
}

// callAPI issues one API action and classifies the response three ways. A
// non-200 status is a hard failure. A 200 carrying the panel's HTML login
// page means the session lapsed: one re-login is forced and the same call is
// retried exactly once. A 200 with JSON is decoded and its status field
// decides the outcome.
func (c *Client) callAPI(ctx context.Context, action string, params url.Values) (*apiResponse, error) {
	resp, err := c.callAPIOnce(ctx, action, params)
	if err == nil || !isSessionLapse(err) {
		return resp, err
	}

	c.logger.Warnw("panel answered with login page, forcing re-login", "action", action)
	c.loggedIn = false
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c.callAPIOnce(ctx, action, params)
}

func (c *Client) callAPIOnce(ctx context.Context, action string, params url.Values) (*apiResponse, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("action", action)

	status, body, err := c.post(ctx, c.apiURL, q)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, ierr.NewErrorf("panel api action %s failed", action).
			WithReportableDetails(map[string]interface{}{
				"status": status,
				"body":   preview(body, 200),
			}).
			Mark(ierr.ErrRemoteOperation)
	}

	if isLoginPage(body) {
		return nil, errSessionLapse
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Panel %s returned an unparseable api response", c.cfg.Name).
			Mark(ierr.ErrRemoteOperation)
	}

	if parsed.Status != statusSuccess {
		return nil, ierr.NewErrorf("panel api action %s rejected", action).
			WithHint(parsed.errorMessage()).
			Mark(ierr.ErrRemoteOperation)
	}
	return &parsed, nil
}

// errSessionLapse is internal to the retry-once classification. It is a bare
// sentinel compared by identity so that genuine credential failures, which
// also carry the authentication code, never trigger a retry loop.
var errSessionLapse = errors.New("panel session lapsed")

func isSessionLapse(err error) bool {
	return errors.Is(err, errSessionLapse)
}

// isLoginPage detects the panel's HTML login page, which it serves with a
// 200 status when the session is gone.
func isLoginPage(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 2048)]))
	if !strings.Contains(head, "<html") && !strings.Contains(head, "<!doctype") {
		return false
	}
	return strings.Contains(head, "login") || strings.Contains(head, `name="password"`)
}

// Login authenticates the browsing session used for catalog scraping and as
// the cookie context API calls ride on.
func (c *Client) Login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}

	form := url.Values{}
	form.Set("username", c.cfg.AdminUsername)
	form.Set("password", c.cfg.AdminPassword)
	form.Set("login", "")

	status, body, err := c.post(ctx, c.panelURL+"/login", form)
	if err != nil {
		return err
	}

	if status != http.StatusOK || isLoginPage(body) {
		c.logger.Warnw("panel login rejected", "status", status)
		return ierr.NewError("panel rejected login").
			WithHintf("Check admin credentials for panel %s", c.cfg.Name).
			Mark(ierr.ErrAuthentication)
	}

	c.loggedIn = true
	c.logger.Infow("panel login successful")
	return nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) post(ctx context.Context, target string, form url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, ierr.WithError(err).
			WithHintf("Panel %s is unreachable", c.cfg.Name).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) get(ctx context.Context, path string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.panelURL+path, nil)
	if err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, ierr.WithError(err).
			WithHintf("Panel %s is unreachable", c.cfg.Name).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	return resp.StatusCode, body, nil
}

func preview(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		return s[:n]
	}
	return s
}

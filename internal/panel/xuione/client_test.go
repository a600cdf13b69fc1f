package xuione

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambill/streambill/internal/config"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/panel/session"
)

const testAccessCode = "a1b2c3"

const loginPageHTML = `<!doctype html><html><body><form><input name="username"><input name="password" type="password"></form></body></html>`

// fakePanel emulates the access-code API surface.
type fakePanel struct {
	mux *http.ServeMux

	logins      atomic.Int64
	apiCalls    atomic.Int64
	lapseOnce   atomic.Bool // answer the next api call with the login page
	failStatus  int         // when non-zero, answer api calls with this status
	rejectNext  string      // when set, answer the next api call with a failure message
	lastAction  string
	lastParams  map[string]string
	linesResult []map[string]interface{}
}

func newFakePanel() *fakePanel {
	p := &fakePanel{}
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("username") != "admin" || r.PostFormValue("password") != "secret" {
			fmt.Fprint(w, loginPageHTML)
			return
		}
		p.logins.Add(1)
		fmt.Fprint(w, "<html><body>dashboard</body></html>")
	})

	mux.HandleFunc("/"+testAccessCode+"/index.php", func(w http.ResponseWriter, r *http.Request) {
		p.apiCalls.Add(1)
		_ = r.ParseForm()

		if r.PostFormValue("api_key") != "key-123" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if p.failStatus != 0 {
			w.WriteHeader(p.failStatus)
			return
		}
		if p.lapseOnce.Swap(false) {
			fmt.Fprint(w, loginPageHTML)
			return
		}
		if p.rejectNext != "" {
			msg := p.rejectNext
			p.rejectNext = ""
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "STATUS_FAILURE", "error": msg,
			})
			return
		}

		p.lastAction = r.PostFormValue("action")
		p.lastParams = map[string]string{}
		for k := range r.PostForm {
			p.lastParams[k] = r.PostFormValue(k)
		}

		switch p.lastAction {
		case "new_line":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "STATUS_SUCCESS",
				"data":   map[string]interface{}{"id": 771, "username": r.PostFormValue("username")},
			})
		case "extend_line":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "STATUS_SUCCESS",
				"data":   map[string]interface{}{"exp_date": 1790000000},
			})
		case "get_lines", "get_users":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "STATUS_SUCCESS",
				"data":   p.linesResult,
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "STATUS_SUCCESS"})
		}
	})

	p.mux = mux
	return p
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := config.XuiOnePanelConfig{
		Name:          "test-panel",
		PanelURL:      srv.URL,
		APIAccessCode: testAccessCode,
		APIKey:        "key-123",
		AdminUsername: "admin",
		AdminPassword: "secret",
		SSLVerify:     true,
		Active:        true,
	}
	client, err := NewClient(context.Background(), cfg, session.NewMemoryStore(), logger.NewNopLogger())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAccessCodeAndKey(t *testing.T) {
	cfg := config.XuiOnePanelConfig{Name: "p", PanelURL: "http://example.test"}
	_, err := NewClient(context.Background(), cfg, session.NewMemoryStore(), logger.NewNopLogger())
	require.Error(t, err)
}

func TestCreateLineReturnsRemoteID(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.CreateLine(context.Background(), CreateLineRequest{
		Username: "line01", Password: "pw", PackageID: "9", Bouquets: []int{2, 3}, MaxConnections: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "771", result.RemoteUserID)
	assert.Equal(t, "new_line", p.lastAction)
	assert.Equal(t, "[2,3]", p.lastParams["bouquets"])
	assert.Equal(t, "key-123", p.lastParams["api_key"])
}

func TestAPIFailureStatusIsFatalWithoutRetry(t *testing.T) {
	p := newFakePanel()
	p.failStatus = http.StatusBadGateway
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.CreateLine(context.Background(), CreateLineRequest{Username: "x", PackageID: "9"})
	require.Error(t, err)
	assert.True(t, ierr.IsRemoteOperation(err))
	assert.EqualValues(t, 1, p.apiCalls.Load())
}

func TestLoginPageResponseTriggersSingleRetry(t *testing.T) {
	p := newFakePanel()
	p.lapseOnce.Store(true)
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.CreateLine(context.Background(), CreateLineRequest{
		Username: "line01", PackageID: "9",
	})
	require.NoError(t, err)
	assert.Equal(t, "771", result.RemoteUserID)
	assert.EqualValues(t, 2, p.apiCalls.Load())
	assert.EqualValues(t, 2, p.logins.Load())
}

func TestPanelRejectionCarriesMessage(t *testing.T) {
	p := newFakePanel()
	p.rejectNext = "EXP_DATE_IN_PAST"
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.ExtendLine(context.Background(), ExtendLineRequest{RemoteUserID: "771", PackageID: "9"})
	require.Error(t, err)
	assert.True(t, ierr.IsRemoteOperation(err))
	assert.Contains(t, err.Error(), "rejected")
}

func TestExtendLineParsesExpiry(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.ExtendLine(context.Background(), ExtendLineRequest{RemoteUserID: "771", PackageID: "9"})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1790000000, 0).UTC().Format("2006-01-02 15:04:05"), result.NewExpiry)
	assert.False(t, result.Ambiguous())
}

func TestCreateResellerUnsupported(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	err := client.CreateReseller(context.Background())
	require.Error(t, err)
	assert.True(t, ierr.IsUnsupported(err))
	// No remote call is made for an unsupported operation.
	assert.EqualValues(t, 0, p.apiCalls.Load())
}

func TestListLinesMapsAccounts(t *testing.T) {
	p := newFakePanel()
	p.linesResult = []map[string]interface{}{
		{"id": 1, "username": "alpha", "password": "pw1", "exp_date": 1790000000, "enabled": 1, "max_connections": 2, "member_id": 1},
		{"id": 2, "username": "beta", "password": "pw2", "exp_date": 1780000000, "enabled": 0, "member_id": 5, "owner": "subres1"},
	}
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	accounts, err := client.ListLines(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "alpha", accounts[0].Username)
	assert.Equal(t, "active", accounts[0].Status)
	assert.Empty(t, accounts[0].CreatedByReseller)

	assert.Equal(t, "disabled", accounts[1].Status)
	assert.Equal(t, "subres1", accounts[1].CreatedByReseller)
}

func TestAdjustCredits(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	require.NoError(t, client.AdjustCredits(context.Background(), "55", decimal.NewFromInt(30)))
	assert.Equal(t, "edit_user", p.lastAction)
	assert.Equal(t, "30", p.lastParams["credits"])
}

package xtreamui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambill/streambill/internal/config"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/panel/session"
)

// fakePanel emulates the panel's form endpoints closely enough to exercise
// the client's parsing and verification logic.
type fakePanel struct {
	mux        *http.ServeMux
	logins     atomic.Int64
	lines      map[string][2]string // username -> {id, expiry}
	resellers  map[string][2]string
	editBumps  bool // when true, an edit POST advances the line expiry
	lastCreate map[string]string
}

func newFakePanel() *fakePanel {
	p := &fakePanel{
		lines:     map[string][2]string{},
		resellers: map[string][2]string{},
		editBumps: true,
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("username") != "admin" || r.PostFormValue("password") != "secret" {
			fmt.Fprint(w, "<html>invalid login</html>")
			return
		}
		p.logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "sess-1", Path: "/"})
		w.Header().Set("Location", "/dashboard.php")
		w.WriteHeader(http.StatusFound)
	})

	mux.HandleFunc("/users.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// enable/disable toggle
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprint(w, `<select name="member"><option value="7">someone</option><option value="42">admin</option></select>`)
	})

	mux.HandleFunc("/user_reseller.php", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if id := r.URL.Query().Get("id"); id != "" {
			// edit form: optionally bump the expiry so requery sees a change
			if p.editBumps {
				for u, rec := range p.lines {
					if rec[0] == id {
						p.lines[u] = [2]string{rec[0], "01-02-2026 00:00"}
					}
				}
			}
			fmt.Fprint(w, "<html>edit ok</html>")
			return
		}
		username := r.PostFormValue("username")
		p.lastCreate = map[string]string{
			"username":  username,
			"password":  r.PostFormValue("password"),
			"package":   r.PostFormValue("package"),
			"bouquets":  r.PostFormValue("bouquets_selected"),
			"member_id": r.PostFormValue("member_id"),
		}
		p.lines[username] = [2]string{"901", "01-01-2026 00:00"}
		w.Header().Set("Location", "/user_reseller.php?id=901")
		w.WriteHeader(http.StatusFound)
	})

	mux.HandleFunc("/table_search.php", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		table := p.lines
		if r.URL.Query().Get("id") == searchTableResellers {
			table = p.resellers
		}
		search := r.PostFormValue("search[value]")
		rows := [][]string{}
		for username, rec := range table {
			if search != "" && username != search {
				continue
			}
			rows = append(rows, []string{
				rec[0], `<a href="#">` + username + `</a>`, "", "", "", "", "3.50", rec[1],
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": rows})
	})

	mux.HandleFunc("/subreseller.php", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		username := r.PostFormValue("username")
		if _, exists := p.resellers[username]; exists {
			fmt.Fprint(w, `<div class="alert alert-danger">Username already taken</div>`)
			return
		}
		p.resellers[username] = [2]string{"55", "Never"}
		fmt.Fprint(w, "<html>form</html>")
	})

	mux.HandleFunc("/credits_add.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	})

	p.mux = mux
	return p
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := config.XtreamUIPanelConfig{
		Name:          "test-panel",
		PanelURL:      srv.URL,
		AdminUsername: "admin",
		AdminPassword: "secret",
		SSLVerify:     true,
		Active:        true,
	}
	client, err := NewClient(context.Background(), cfg, session.NewMemoryStore(), logger.NewNopLogger())
	require.NoError(t, err)
	return client
}

func TestLoginReusesPersistedSession(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	sessions := session.NewMemoryStore()
	cfg := config.XtreamUIPanelConfig{
		Name: "test-panel", PanelURL: srv.URL,
		AdminUsername: "admin", AdminPassword: "secret", SSLVerify: true, Active: true,
	}

	first, err := NewClient(context.Background(), cfg, sessions, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, first.Login(context.Background()))
	require.NoError(t, first.Login(context.Background()))
	assert.EqualValues(t, 1, p.logins.Load())

	// A second client sharing the store picks up the cookie without logging in.
	second, err := NewClient(context.Background(), cfg, sessions, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, second.Login(context.Background()))
	assert.EqualValues(t, 1, p.logins.Load())
}

func TestLoginRejectedWithBadCredentials(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	cfg := config.XtreamUIPanelConfig{
		Name: "test-panel", PanelURL: srv.URL,
		AdminUsername: "admin", AdminPassword: "wrong", SSLVerify: true, Active: true,
	}
	client, err := NewClient(context.Background(), cfg, session.NewMemoryStore(), logger.NewNopLogger())
	require.NoError(t, err)

	err = client.Login(context.Background())
	require.Error(t, err)
	assert.True(t, ierr.IsAuthentication(err))
}

func TestCreateSubscriberParsesRedirect(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.CreateSubscriber(context.Background(), CreateSubscriberRequest{
		Username:       "newline01",
		Password:       "pass12345678",
		PackageID:      "52",
		Bouquets:       []int{1, 4, 9},
		MaxConnections: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "901", result.RemoteUserID)
	assert.Equal(t, "newline01", result.Username)

	// Owner id resolved from the dropdown, bouquets serialized as JSON.
	assert.Equal(t, "42", p.lastCreate["member_id"])
	assert.Equal(t, "[1,4,9]", p.lastCreate["bouquets"])
	assert.Equal(t, "52", p.lastCreate["package"])
}

func TestExtendSubscriberVerifiedByRequery(t *testing.T) {
	p := newFakePanel()
	p.lines["existing01"] = [2]string{"300", "01-01-2026 00:00"}
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.ExtendSubscriber(context.Background(), ExtendSubscriberRequest{
		Username: "existing01", Password: "pw", PackageID: "52",
	})
	require.NoError(t, err)
	assert.Equal(t, "300", result.RemoteUserID)
	assert.False(t, result.Ambiguous())
	assert.Equal(t, "01-02-2026 00:00", result.NewExpiry)
}

func TestExtendSubscriberAmbiguousWhenExpiryUnchanged(t *testing.T) {
	p := newFakePanel()
	p.editBumps = false
	p.lines["existing01"] = [2]string{"300", "01-01-2026 00:00"}
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.ExtendSubscriber(context.Background(), ExtendSubscriberRequest{
		Username: "existing01", Password: "pw", PackageID: "52",
	})
	require.NoError(t, err)
	assert.True(t, result.Ambiguous())
	assert.Contains(t, result.AmbiguityDetail, "unchanged")
}

func TestExtendSubscriberUnknownLine(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.ExtendSubscriber(context.Background(), ExtendSubscriberRequest{
		Username: "ghost", Password: "pw", PackageID: "52",
	})
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestCreateResellerDetectsAlertBlock(t *testing.T) {
	p := newFakePanel()
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	req := CreateResellerRequest{
		Username: "reseller01", Password: "pw", Credits: decimal.NewFromInt(10),
	}
	require.NoError(t, client.CreateReseller(context.Background(), req))

	// Second creation trips the panel's duplicate-username alert.
	err := client.CreateReseller(context.Background(), req)
	require.Error(t, err)
	assert.True(t, ierr.IsRemoteOperation(err))
}

func TestAddCreditsResolvesResellerID(t *testing.T) {
	p := newFakePanel()
	p.resellers["reseller01"] = [2]string{"55", "Never"}
	srv := httptest.NewServer(p.mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	err := client.AddCredits(context.Background(), "reseller01", decimal.NewFromInt(25))
	require.NoError(t, err)

	err = client.AddCredits(context.Background(), "nobody", decimal.NewFromInt(5))
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/services"
	"github.com/dmitrijs2005/dualcal/internal/server/store/memory"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

type fixture struct {
	srv      *httptest.Server
	claims   *memory.ClaimsStore
	accounts *services.AccountService
	calendar *services.CalendarService
}

func newFixture(t *testing.T, burst int) *fixture {
	t.Helper()
	cfg := &config.Config{
		SecretKey:             testSecret,
		TokenValidityDuration: time.Hour,
		BootstrapEmail:        "owner@dualcal.local",
		DefaultTimezone:       "UTC",
	}
	claims := memory.NewClaimsStore()
	records := memory.NewRecordStore()
	m := metrics.New()
	l := logging.Nop{}

	f := &fixture{
		claims:   claims,
		accounts: services.NewAccountService(claims, records, cfg, m, l),
		calendar: services.NewCalendarService(records, m, l),
	}
	s := NewHTTPServer(Options{Address: "127.0.0.1:0", SecretKey: testSecret, RPS: 100, Burst: burst},
		l, m, services.NewRoleService(claims, records, m, l), f.calendar)
	f.srv = httptest.NewServer(s.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) signIn(t *testing.T, uid, email string) string {
	t.Helper()
	sess, err := f.accounts.SignIn(context.Background(), auth.Identity{UID: uid, Email: email}, services.Profile{})
	require.NoError(t, err)
	return sess.Token
}

func (f *fixture) setRole(t *testing.T, token string, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/v1/setRole", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorOf(out map[string]any) (string, string) {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	msg, _ := e["message"].(string)
	return code, msg
}

func TestSetRole(t *testing.T) {
	f := newFixture(t, 100)
	owner := f.signIn(t, "boot", "owner@dualcal.local")
	user := f.signIn(t, "u1", "u1@example.com")

	tests := []struct {
		name    string
		token   string
		body    string
		status  int
		code    string
		message string
	}{
		{"no token", "", `{"data":{"uid":"u1","role":"admin"}}`, http.StatusUnauthorized, "unauthenticated", "Must be signed in"},
		{"bad token", "garbage", `{"data":{"uid":"u1","role":"admin"}}`, http.StatusUnauthorized, "unauthenticated", "invalid token"},
		{"not master", user, `{"data":{"uid":"u1","role":"master_admin"}}`, http.StatusForbidden, "permission-denied", "Only master admins can set roles"},
		{"missing role", owner, `{"data":{"uid":"u1"}}`, http.StatusBadRequest, "invalid-argument", "Missing uid or role"},
		{"unknown role", owner, `{"data":{"uid":"u1","role":"root"}}`, http.StatusBadRequest, "invalid-argument", "Invalid role"},
		{"malformed", owner, `{"data":`, http.StatusBadRequest, "invalid-argument", "Malformed request"},
		{"missing account", owner, `{"data":{"uid":"ghost","role":"admin"}}`, http.StatusInternalServerError, "internal", "Error setting role: users/ghost: not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := f.setRole(t, tt.token, tt.body)
			code, msg := errorOf(out)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, msg)
		})
	}

	status, out := f.setRole(t, owner, `{"data":{"uid":"u1","role":"admin"}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"result": map[string]any{"success": true}}, out)

	c, err := f.claims.GetClaims(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, roles.Claims{Admin: true}, c)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 1)

	status, _ := f.setRole(t, "", `{"data":{}}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, out := f.setRole(t, "", `{"data":{}}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	code, _ := errorOf(out)
	assert.Equal(t, "resource-exhausted", code)
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t, 100)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dualcal_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func wsURL(f *fixture, token string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/ws/events?token=" + token
}

func TestWatchEvents(t *testing.T) {
	f := newFixture(t, 100)
	tok := f.signIn(t, "u1", "u1@example.com")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f, tok), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Empty(t, msg.Events)

	id, err := auth.ParseToken(tok, []byte(testSecret))
	require.NoError(t, err)
	_, err = f.calendar.AddEvent(context.Background(), id, services.EventInput{Title: "Dentist", Date: "2024-01-10"})
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&msg))
	require.Len(t, msg.Events, 1)
	assert.Equal(t, "Dentist", msg.Events[0].Title)
	assert.NotEmpty(t, msg.Events[0].ID)
}

func TestWatchEvents_RequiresSignIn(t *testing.T) {
	f := newFixture(t, 100)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(f, ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

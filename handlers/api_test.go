package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/game"
	"lodyland/internal/gameplay"
	"lodyland/internal/network"
)

const testAdminToken = "let-me-in"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.NewConnection(database.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := content.Defaults()
	require.NoError(t, err)
	store := content.NewStore(reg)
	hub := network.NewEventHub(100)
	t.Cleanup(hub.Close)

	svc := gameplay.NewService(db, store, gameplay.DefaultConfig(), hub)
	api := NewAPI(Deps{
		Service:     svc,
		Store:       store,
		LoadContent: content.Defaults,
		DB:          db,
		Hub:         hub,
		Events:      hub,
		AdminToken:  testAdminToken,
		CorsOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

type apiResponse map[string]interface{}

func (r apiResponse) data() map[string]interface{} {
	d, _ := r["data"].(map[string]interface{})
	return d
}

func do(t *testing.T, c *http.Client, method, url string, body interface{}, header ...string) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestRegisterCollectCooldown(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	status, body := do(t, c, http.MethodPost, srv.URL+"/api/register", map[string]string{"name": "alice"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "alice", body.data()["name"])

	status, body = do(t, c, http.MethodGet, srv.URL+"/api/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body.data()["name"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/tiles/unlock", map[string]string{"resource": "branch"})
	require.Equal(t, http.StatusOK, status, body)
	tileID := int(body.data()["id"].(float64))

	collectURL := srv.URL + "/api/tiles/" + strconv.Itoa(tileID) + "/collect"
	status, body = do(t, c, http.MethodPost, collectURL, nil)
	require.Equal(t, http.StatusOK, status, body)
	stock := body.data()["stock"].(map[string]interface{})
	assert.Equal(t, 1.0, stock["branch"])

	status, body = do(t, c, http.MethodPost, collectURL, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, game.ReasonOnCooldown, body["error"])
	assert.NotEmpty(t, body["until"])

	status, body = do(t, c, http.MethodGet, srv.URL+"/api/state", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body.data()["stock"].(map[string]interface{})["branch"])
}

func TestRequiresSession(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/api/state", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", body["error"])

	status, _ = do(t, c, http.MethodPost, srv.URL+"/api/register", map[string]string{"name": "bob"})
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, c, http.MethodPost, srv.URL+"/api/logout", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, c, http.MethodGet, srv.URL+"/api/state", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, c, http.MethodPost, srv.URL+"/api/login", map[string]string{"name": "bob"})
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, c, http.MethodGet, srv.URL+"/api/daily/status", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRejectionStatuses(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	status, _ := do(t, c, http.MethodPost, srv.URL+"/api/register", map[string]string{"name": "carol"})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, c, http.MethodPost, srv.URL+"/api/shop/cards/nope/buy", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, game.ReasonCardUnknown, body["error"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/shop/cards/boost_branch/buy", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, game.ReasonNotEnoughCoins, body["error"])
	assert.Equal(t, 25.0, body["need"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/sell", map[string]interface{}{"resource": "branch", "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, game.ReasonInvalidQuantity, body["error"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/lands/beach/collect", map[string]interface{}{"slot": 0})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, game.ReasonLandLocked, body["error"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/daily/claim", nil)
	require.Equal(t, http.StatusOK, status, body)
	status, body = do(t, c, http.MethodPost, srv.URL+"/api/daily/claim", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, game.ReasonAlreadyClaimed, body["error"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/register", map[string]string{"name": "carol"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, game.ReasonNameTaken, body["error"])

	status, body = do(t, c, http.MethodGet, srv.URL+"/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestAdminContentReload(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/api/admin/content", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "admin_required", body["error"])

	auth := []string{"Authorization", "Bearer " + testAdminToken}
	status, body = do(t, c, http.MethodGet, srv.URL+"/api/admin/content", nil, auth...)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body.data()["version"])

	status, body = do(t, c, http.MethodPost, srv.URL+"/api/admin/content/reload", nil, auth...)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 2.0, body.data()["version"])
	counts := body.data()["counts"].(map[string]interface{})
	assert.Equal(t, 5.0, counts["resources"])

	status, body = do(t, c, http.MethodGet, srv.URL+"/api/admin/events/history?kinds=content_reload", nil, auth...)
	require.Equal(t, http.StatusOK, status)
	events := body["data"].([]interface{})
	require.Len(t, events, 1)
	assert.Equal(t, game.EventContentLoad, events[0].(map[string]interface{})["kind"])

	status, _ = do(t, c, http.MethodPost, srv.URL+"/api/admin/backup", nil, auth...)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, body = do(t, c, http.MethodGet, srv.URL+"/api/admin/db/stats", nil, auth...)
	require.Equal(t, http.StatusOK, status)
	sizes := body.data()["sizes"].(map[string]interface{})
	assert.Greater(t, sizes["page_count"].(float64), 0.0)
	schema := body.data()["schema"].([]interface{})
	require.Len(t, schema, 1)
	assert.Equal(t, true, schema[0].(map[string]interface{})["applied"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/register", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestStatusForReason(t *testing.T) {
	cases := map[string]int{
		game.ReasonTileNotFound:      http.StatusNotFound,
		game.ReasonOnCooldown:        http.StatusConflict,
		game.ReasonLevelTooLow:       http.StatusForbidden,
		game.ReasonNotEnoughDiamonds: http.StatusBadRequest,
		game.ReasonSlotOutOfRange:    http.StatusBadRequest,
	}
	for reason, want := range cases {
		assert.Equal(t, want, statusForReason(reason), reason)
	}
}

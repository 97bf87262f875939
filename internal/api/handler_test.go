package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safetywatch/internal/feed"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
	"github.com/mr1hm/safetywatch/internal/service"
)

type testEnv struct {
	store  *repository.GormStore
	feed   *feed.Feed
	router *gin.Engine
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repository.Open("sqlite", ":memory:")
	require.NoError(t, err)

	f := feed.New(feed.NewSnapshotter(store, feed.SnapshotConfig{AlertLimit: 10}, nil), 20*time.Millisecond)
	t.Cleanup(func() {
		f.Close()
		store.Close()
	})

	svc := Services{
		Alerts:    service.NewAlertService(store, store, service.WithRefresher(f)),
		Users:     service.NewUserService(store, nil),
		Contacts:  service.NewContactService(store, store),
		Rules:     service.NewRuleService(store, store),
		Locations: service.NewLocationService(store, store, f),
	}

	router := gin.New()
	NewHandler(svc, f, nil).RegisterRoutes(router)
	return &testEnv{store: store, feed: f, router: router}
}

func (e *testEnv) seedUser(t *testing.T, id string) {
	t.Helper()
	name := "User " + id
	require.NoError(t, e.store.CreateUser(context.Background(), &models.User{ID: id, Email: id + "@example.com", Name: &name}))
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) rpcEnvelope {
	t.Helper()
	var env rpcEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRPC_CreateAndListAlerts(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	w := env.do(t, http.MethodPost, "/api/rpc/alerts.create",
		`{"userId":"u1","category":"FALL_DETECTED","severity":"HIGH","message":"fell down","latitude":40.7,"longitude":-74.0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created models.Alert
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &created))
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.User)
	assert.Equal(t, "u1", created.User.ID)

	w = env.do(t, http.MethodGet, "/api/rpc/alerts.list?input="+url.QueryEscape(`{"isResolved":false}`), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var listed []models.Alert
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Result, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestRPC_ErrorStatus(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown procedure", "/api/rpc/alerts.nope", `{}`, http.StatusNotFound, "NOT_FOUND"},
		{"validation", "/api/rpc/alerts.create", `{"userId":"u1","category":"BOGUS","severity":"HIGH","message":"x"}`, http.StatusBadRequest, "VALIDATION"},
		{"malformed input", "/api/rpc/alerts.create", `{"userId":`, http.StatusBadRequest, "VALIDATION"},
		{"missing user", "/api/rpc/users.get", `{"id":"ghost"}`, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate email", "/api/rpc/users.create", `{"email":"u1@example.com"}`, http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			e := decodeEnvelope(t, w)
			require.NotNil(t, e.Error)
			assert.Equal(t, tt.code, string(e.Error.Code))
		})
	}
}

func TestRPC_ValidationReportsFields(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodPost, "/api/rpc/users.create", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := decodeEnvelope(t, w)
	require.NotNil(t, e.Error)
	assert.Contains(t, e.Error.Fields, "email")
}

func TestRPC_Batch(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	body := `[
		{"id":"a","procedure":"users.list"},
		{"id":"b","procedure":"users.get","input":{"id":"ghost"}},
		{"id":"c","procedure":"alerts.create","input":{"userId":"u1","category":"MANUAL_EMERGENCY","severity":"LOW","message":"hi"}}
	]`
	w := env.do(t, http.MethodPost, "/api/rpc", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].ID)
	assert.Nil(t, results[0].Error)
	assert.NotEmpty(t, results[0].Result)

	assert.Equal(t, "b", results[1].ID)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, "NOT_FOUND", string(results[1].Error.Code))

	assert.Equal(t, "c", results[2].ID)
	assert.Nil(t, results[2].Error)
}

func TestRPC_BatchLimits(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodPost, "/api/rpc", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var calls []string
	for i := 0; i <= maxBatchCalls; i++ {
		calls = append(calls, fmt.Sprintf(`{"id":"%d","procedure":"users.list"}`, i))
	}
	w = env.do(t, http.MethodPost, "/api/rpc", "["+strings.Join(calls, ",")+"]")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/rpc", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRPC_ProceduresRegistered(t *testing.T) {
	h := NewHandler(Services{}, nil, nil)
	assert.ElementsMatch(t, []string{
		"alerts.list", "alerts.create", "alerts.resolve",
		"users.list", "users.get", "users.create", "users.linkTelegram",
		"emergencyContacts.listByUser", "emergencyContacts.create", "emergencyContacts.update", "emergencyContacts.delete",
		"detectionRules.getByUser", "detectionRules.create", "detectionRules.update",
		"locations.record", "locations.history",
	}, h.Procedures())
}

func TestRPC_GetRejectsMutations(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	input := url.QueryEscape(`{"userId":"u1","category":"FALL_DETECTED","severity":"CRITICAL","message":"via GET"}`)
	w := env.do(t, http.MethodGet, "/api/rpc/alerts.create?input="+input, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code, w.Body.String())
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	e := decodeEnvelope(t, w)
	require.NotNil(t, e.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", string(e.Error.Code))

	alerts, err := env.store.ListAlerts(context.Background(), repository.AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	for _, name := range []string{"alerts.resolve", "users.linkTelegram", "emergencyContacts.delete", "locations.record"} {
		w = env.do(t, http.MethodGet, "/api/rpc/"+name, "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, name)
	}

	w = env.do(t, http.MethodGet, "/api/rpc/users.get?input="+url.QueryEscape(`{"id":"u1"}`), "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestREST_Alerts(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")
	env.do(t, http.MethodPost, "/api/rpc/alerts.create", `{"userId":"u1","category":"MANUAL_EMERGENCY","severity":"LOW","message":"one"}`)

	w := env.do(t, http.MethodGet, "/api/alerts?isResolved=false&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)

	w = env.do(t, http.MethodGet, "/api/alerts?isResolved=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/alerts?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestREST_Users(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	w := env.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	require.NotNil(t, users[0].Counts)

	w = env.do(t, http.MethodGet, "/api/users/u1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMap_ReturnsGeoJSON(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")
	env.do(t, http.MethodPost, "/api/rpc/alerts.create", `{"userId":"u1","category":"FALL_DETECTED","severity":"HIGH","message":"fell","latitude":1,"longitude":2}`)
	env.do(t, http.MethodPost, "/api/rpc/alerts.create", `{"userId":"u1","category":"MANUAL_EMERGENCY","severity":"LOW","message":"no position"}`)
	env.do(t, http.MethodPost, "/api/rpc/locations.record", `{"userId":"u2","latitude":3,"longitude":4}`)

	w := env.do(t, http.MethodGet, "/api/map", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	kinds := map[string][]float64{}
	for _, f := range fc.Features {
		kinds[f.Properties["kind"].(string)] = f.Geometry.Coordinates
	}
	assert.Equal(t, []float64{2, 1}, kinds["alert"])
	assert.Equal(t, []float64{4, 3}, kinds["user"])
}

func TestStream_SSE(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	events := 0
	for events < 3 && scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap models.Snapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		assert.Len(t, snap.Users, 1)
		assert.NotNil(t, snap.Alerts)
		events++
	}
	assert.Equal(t, 3, events)
}

func TestStream_NDJSON(t *testing.T) {
	env := setupTestRouter(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream?format=ndjson", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	dec := json.NewDecoder(resp.Body)
	for i := 0; i < 2; i++ {
		var snap models.Snapshot
		require.NoError(t, dec.Decode(&snap))
		assert.False(t, snap.Timestamp.IsZero())
	}
}

func TestWebsocket_ReceivesSnapshots(t *testing.T) {
	env := setupTestRouter(t)
	env.seedUser(t, "u1")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snap models.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Len(t, snap.Users, 1)

	// A mutation triggers an immediate push with the new alert.
	w := env.do(t, http.MethodPost, "/api/rpc/alerts.create", `{"userId":"u1","category":"MANUAL_EMERGENCY","severity":"LOW","message":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)

	found := false
	for i := 0; i < 10 && !found; i++ {
		require.NoError(t, conn.ReadJSON(&snap))
		found = len(snap.Alerts) == 1
	}
	assert.True(t, found)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(0))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequestLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogging(nil))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusTeapot, "hi") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

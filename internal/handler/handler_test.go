package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bigfish/internal/repository/memory"
	"bigfish/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.New()
	bus := service.NewEventBus()
	return NewRouter(Routes{
		Mvps:   NewMvpHandler(service.NewMvpService(store, bus, logger), logger),
		Users:  NewUserHandler(service.NewUserService(store, bus, logger), logger),
		Logger: logger,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestRootAndHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Big Fish API is running!", decode(t, rec)["message"])

	rec = do(t, h, http.MethodGet, "/health/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestPreflight(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodOptions, "/mvps", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t)
	for _, tc := range []struct{ method, path, want string }{
		{http.MethodGet, "/nope/", "/nope"},
		{http.MethodDelete, "/mvps", "/mvps"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "Not Found", body["error"])
			assert.Equal(t, tc.want, body["path"])
		})
	}
}

func TestMvpRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/mvps", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/mvps/", `{"id":"1511","mob_id":1511,"name":"Amon Ra","map_name":"moc_pryd06","spawn_delay":60,"spawn_variance":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "alive", decode(t, rec)["status"])

	rec = do(t, h, http.MethodPut, "/mvps/1511", `{"status":"dead","last_killed":"2024-05-01T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "dead", body["status"])
	assert.Equal(t, "2024-05-01T13:00:00Z", body["respawn_at"])

	rec = do(t, h, http.MethodGet, "/mvps/1511", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dead", decode(t, rec)["status"])

	var list []map[string]any
	rec = do(t, h, http.MethodGet, "/mvps", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestMvpErrors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/mvps/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/mvps/missing", `{"status":"dead"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/mvps", `{"mob_id":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["details"])

	rec = do(t, h, http.MethodPost, "/mvps", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMvpCreateDuplicate(t *testing.T) {
	h := newTestRouter(t)
	amonRa := `{"id":"1511","mob_id":1511,"name":"Amon Ra","map_name":"moc_pryd06","spawn_delay":60,"spawn_variance":10}`

	rec := do(t, h, http.MethodPost, "/mvps", amonRa)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPut, "/mvps/1511", `{"status":"dead","last_killed":"2024-05-01T12:00:00Z","notes":"killed by guild"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/mvps", amonRa)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["details"])

	rec = do(t, h, http.MethodGet, "/mvps/1511", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "dead", body["status"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["last_killed"])
	assert.Equal(t, "killed by guild", body["notes"])
}

func TestUserRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/users/alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())

	rec = do(t, h, http.MethodPut, "/users/alice", `{"theme":"light","mvpLayout":"right"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/users/alice", `{"displayName":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "light", body["theme"])
	assert.Equal(t, "right", body["mvp_layout"])
	assert.Equal(t, "Alice", body["display_name"])

	var users []map[string]any
	rec = do(t, h, http.MethodGet, "/users", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0]["uid"])
}

func TestRecover(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover(logger))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", decode(t, rec)["details"])
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("a"), mw("b"))
	do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, []string{"a", "b"}, order)
}

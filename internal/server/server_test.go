package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/checklist/internal/config"
	"github.com/dukerupert/checklist/internal/database"
	"github.com/dukerupert/checklist/internal/middleware"
	chws "github.com/dukerupert/checklist/internal/websocket"
)

func setupServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := New(db, cfg, logger)
	require.NoError(t, srv.List().Refresh(context.Background()))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := setupServer(t, config.Default())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRoutes(t *testing.T) {
	ts := setupServer(t, config.Default())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/items", "", http.StatusOK},
		{http.MethodGet, "/api/state", "", http.StatusOK},
		{http.MethodPost, "/api/refresh", "", http.StatusOK},
		{http.MethodPost, "/api/items", `{"name": "Rice"}`, http.StatusCreated},
		{http.MethodPut, "/api/items/1", `{"name": "Oat milk"}`, http.StatusOK},
		{http.MethodPost, "/api/items/1/toggle", "", http.StatusOK},
		{http.MethodPost, "/api/items/clear-bought", "", http.StatusOK},
		{http.MethodDelete, "/api/items/2", "", http.StatusOK},
		{http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{http.MethodPatch, "/api/items/1", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, "%s %s", tt.method, tt.path)
	}
}

func TestImportIsRateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.ImportRateLimit = 1
	ts := setupServer(t, cfg)

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer src.Close()

	post := func() *http.Response {
		resp, err := http.Post(ts.URL+"/api/import", "application/json", strings.NewReader(`{"url": "`+src.URL+`"}`))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusOK, post().StatusCode)
	resp := post()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMutationsReachWebsocketClients(t *testing.T) {
	ts := setupServer(t, config.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Registration happens after the upgrade; retry the mutation until the
	// client sees a message.
	got := make(chan chws.Message, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg chws.Message
		if json.Unmarshal(data, &msg) == nil {
			got <- msg
		}
	}()

	for {
		resp, err := http.Post(ts.URL+"/api/items/1/toggle", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		select {
		case msg := <-got:
			assert.Equal(t, "grocery_item_toggled", msg.Type)
			assert.Equal(t, int64(1), msg.ID)
			return
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no websocket message received")
		}
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/config"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/store"
)

func newTestServer(t *testing.T, cfg config.ServerConfig, opts ...Option) http.Handler {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return New(cfg, opts...).Handler()
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const threeJourneys = `{"model": "%s", "journeys": [
	{"id": "1", "steps": ["Google", "Facebook", "Email"]},
	{"id": "2", "steps": ["Facebook", "Email"]},
	{"id": "3", "steps": []}
]}`

func body(format, arg string) string {
	return strings.Replace(format, "%s", arg, 1)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))
}

type downStore struct{ store.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, WithStore(downStore{}))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, w)["store"])
}

func TestListModels(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, WithDefaultModel(attribution.Linear))

	w := do(t, h, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Models  []modelInfo `json:"models"`
		Default string      `json:"default"`
	}](t, w)
	require.Len(t, resp.Models, 5)
	assert.Equal(t, modelInfo{Name: "last_click", Label: "Last Click"}, resp.Models[0])
	assert.Equal(t, modelInfo{Name: "position_based", Label: "Position-based (U-shaped)"}, resp.Models[4])
	assert.Equal(t, "linear", resp.Default)
}

func TestAttribute(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	tests := []struct {
		model string
		want  map[string]float64
	}{
		{model: "last_click", want: map[string]float64{"Email": 2}},
		{model: "First Click", want: map[string]float64{"Google": 1, "Facebook": 1}},
		{model: "linear", want: map[string]float64{"Google": 1.0 / 3, "Facebook": 1.0/3 + 0.5, "Email": 1.0/3 + 0.5}},
		{model: "", want: map[string]float64{"Email": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/v1/attribution", body(threeJourneys, tt.model))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			resp := decode[attributionResponse](t, w)
			assert.Equal(t, weightingConversions, resp.Weighting)
			assert.Equal(t, 2, resp.Journeys)
			assert.Equal(t, 1, resp.Skipped)
			assert.InDelta(t, 2.0, resp.Total, 1e-9)
			require.Len(t, resp.Credits, len(tt.want))
			for _, c := range resp.Credits {
				assert.InDelta(t, tt.want[c.Channel], c.Credit, 1e-9, c.Channel)
			}
		})
	}
}

func TestAttribute_RankedCredits(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodPost, "/v1/attribution", body(threeJourneys, "linear"))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[attributionResponse](t, w)
	require.Len(t, resp.Credits, 3)
	assert.Equal(t, "Email", resp.Credits[0].Channel)
	assert.Equal(t, "Facebook", resp.Credits[1].Channel)
	assert.Equal(t, "Google", resp.Credits[2].Channel)
}

func TestAttribute_Errors(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodPost, "/v1/attribution", body(threeJourneys, "markov"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "invalid model")

	w = do(t, h, http.MethodPost, "/v1/attribution", `{"journeys": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "decode body")

	w = do(t, h, http.MethodPost, "/v1/attribution", `{"model": "markov", "journeys": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttributeRevenue(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	req := `{"model": "last_click", "journeys": [
		{"id": "1", "steps": ["Google"], "revenue": 100},
		{"id": "2", "steps": ["Email"]}
	]}`
	w := do(t, h, http.MethodPost, "/v1/attribution/revenue", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[attributionResponse](t, w)
	assert.Equal(t, weightingRevenue, resp.Weighting)
	assert.InDelta(t, 101.0, resp.Total, 1e-9)
	require.Len(t, resp.Credits, 2)
	assert.Equal(t, "Google", resp.Credits[0].Channel)
	assert.InDelta(t, 100.0, resp.Credits[0].Credit, 1e-9)
}

func TestCompare(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodPost, "/v1/attribution/compare", body(threeJourneys, "unused"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[compareResponse](t, w)
	assert.Equal(t, []string{"last_click", "first_click", "linear", "time_decay", "position_based"}, resp.Models)
	assert.Equal(t, 2, resp.Journeys)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "Email", resp.Rows[0].Channel)
	assert.InDelta(t, 2.0, resp.Rows[0].Credits["last_click"], 1e-9)
	assert.InDelta(t, 0.0, resp.Rows[0].Credits["first_click"], 1e-9)

	w = do(t, h, http.MethodPost, "/v1/attribution/compare", `{"models": ["linear", "u_shaped"], "journeys": []}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[compareResponse](t, w)
	assert.Equal(t, []string{"linear", "position_based"}, resp.Models)
	assert.Empty(t, resp.Rows)

	w = do(t, h, http.MethodPost, "/v1/attribution/compare", `{"models": ["shapley"], "journeys": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraph(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	req := `{"journeys": [
		{"id": "1", "steps": ["A", "B"]},
		{"id": "2", "steps": ["B", "A"]},
		{"id": "3", "steps": ["A", "B", "C"]}
	]}`
	w := do(t, h, http.MethodPost, "/v1/graph", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
			Target string `json:"target"`
			Value  int    `json:"value"`
		} `json:"edges"`
		Rejected []json.RawMessage `json:"rejected"`
		Stats    struct {
			TotalNodes    int `json:"total_nodes"`
			TotalEdges    int `json:"total_edges"`
			RejectedEdges int `json:"rejected_edges"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Nodes, 3)
	require.Len(t, resp.Edges, 2)
	assert.Equal(t, "A", resp.Edges[0].Source)
	assert.Equal(t, "B", resp.Edges[0].Target)
	assert.Equal(t, 2, resp.Edges[0].Value)
	assert.Len(t, resp.Rejected, 1)
	assert.Equal(t, 3, resp.Stats.TotalNodes)
	assert.Equal(t, 2, resp.Stats.TotalEdges)
	assert.Equal(t, 1, resp.Stats.RejectedEdges)
}

func TestGraph_EmptyBody(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodPost, "/v1/graph", `{"journeys": []}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nodes": [], "edges": [], "stats": {"total_nodes": 0, "total_edges": 0, "rejected_edges": 0, "transitions": 0}}`, w.Body.String())
}

func TestBatches(t *testing.T) {
	st := newSQLiteStore(t)
	_, err := st.SaveBatch(context.Background(), "q3", []model.Journey{
		{ID: "1", Steps: []string{"Google", "Facebook", "Email"}, Revenue: 50},
		{ID: "2", Steps: []string{"Email", "Google"}},
	})
	require.NoError(t, err)

	h := newTestServer(t, config.ServerConfig{}, WithStore(st))

	w := do(t, h, http.MethodGet, "/v1/batches", "")
	require.Equal(t, http.StatusOK, w.Code)
	batches := decode[struct {
		Batches []store.BatchInfo `json:"batches"`
	}](t, w).Batches
	require.Len(t, batches, 1)
	assert.Equal(t, "q3", batches[0].Name)
	assert.Equal(t, 2, batches[0].Journeys)

	w = do(t, h, http.MethodGet, "/v1/batches/q3/attribution?model=first_click", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[attributionResponse](t, w)
	assert.Equal(t, "first_click", resp.Model)
	assert.InDelta(t, 2.0, resp.Total, 1e-9)

	w = do(t, h, http.MethodGet, "/v1/batches/q3/attribution?weighting=revenue", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 51.0, decode[attributionResponse](t, w).Total, 1e-9)

	w = do(t, h, http.MethodGet, "/v1/batches/q3/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rejected"`)

	w = do(t, h, http.MethodGet, "/v1/batches/q4/graph", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/v1/batches/q3/attribution?model=markov", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/batches/q3/attribution?weighting=profit", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatches_NotMountedWithoutStore(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodGet, "/v1/batches", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{RateLimit: 0.001, RateBurst: 1})

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestBodyLimit(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{MaxBodyBytes: 16})

	w := do(t, h, http.MethodPost, "/v1/graph", body(threeJourneys, "linear"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{})

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{CORSOrigins: []string{"https://dash.example.com"}})

	r := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	r.Header.Set("Origin", "https://dash.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(config.ServerConfig{}, WithLogger(zap.New(core)))

	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "server: panic in handler", logs.All()[0].Message)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(config.ServerConfig{}, WithLogger(zap.New(core))).Handler()

	r := httptest.NewRequest(http.MethodPost, "/v1/graph", bytes.NewBufferString(`{"journeys": []}`))
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/v1/graph", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(config.ServerConfig{Port: 0}, WithLogger(zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.ListenAndServe(ctx))
}

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/splitr/internal/adapters/clock"
	"github.com/emiliopalmerini/splitr/internal/adapters/memory"
	"github.com/emiliopalmerini/splitr/internal/adapters/prometheus"
	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/experiment"
	"github.com/emiliopalmerini/splitr/internal/logging"
	"github.com/emiliopalmerini/splitr/internal/web"
)

type testAPI struct {
	t      *testing.T
	server *web.Server
	engine *experiment.Engine
}

func newTestAPI(t *testing.T, recorder *prometheus.Recorder) *testAPI {
	t.Helper()
	engine := experiment.NewEngine(
		memory.NewExperimentRepository(),
		memory.NewAssignmentRepository(),
		experiment.WithRandom(clock.NewRandom(3)),
		experiment.WithLogger(logging.Discard()),
	)
	resolver := experiment.NewResolver(memory.NewSessionStore(0, 0))
	srv := web.NewServer(web.Config{}, engine, resolver, recorder, logging.Discard())
	return &testAPI{t: t, server: srv, engine: engine}
}

func (a *testAPI) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		var buf bytes.Buffer
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		req = httptest.NewRequest(method, path, &buf)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createRunning(name string, traffic int) string {
	a.t.Helper()
	ctx := context.Background()
	exp, err := a.engine.Create(ctx, domain.ExperimentDefinition{
		Name:              name,
		Variants:          []domain.Variant{{ID: "control", Weight: 50}, {ID: "b", Weight: 50}},
		TrafficPercentage: traffic,
	})
	require.NoError(a.t, err)
	_, err = a.engine.Start(ctx, exp.ID)
	require.NoError(a.t, err)
	return exp.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = api.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllocate_AnonymousSessionIsSticky(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.createRunning("hero", 100)

	rec := api.do(http.MethodPost, "/api/allocate", map[string]string{"experiment": "hero"})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[experiment.Allocation](t, rec)
	assert.True(t, first.Assigned)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "splitr_sid", cookies[0].Name)

	for i := 0; i < 10; i++ {
		rec = api.do(http.MethodPost, "/api/allocate", map[string]string{"experiment": "hero"}, cookies[0])
		again := decode[experiment.Allocation](t, rec)
		assert.Equal(t, first.VariantID, again.VariantID)
		assert.Equal(t, experiment.ReasonExisting, again.Reason)
		assert.Empty(t, rec.Result().Cookies(), "an existing session is not reissued")
	}

	analysis, err := api.engine.Analyze(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, analysis.TotalUsers)
}

func TestAllocate_UnknownExperimentFallsBack(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodPost, "/api/allocate", map[string]string{"experiment": "nope", "user_id": "u-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[experiment.Allocation](t, rec)
	assert.Equal(t, experiment.Allocation{VariantID: "control", Reason: experiment.ReasonNotFound}, got)
}

func TestAllocate_BadRequestFallsBackToControl(t *testing.T) {
	api := newTestAPI(t, nil)
	want := experiment.Allocation{VariantID: "control", Reason: experiment.ReasonInvalidRequest}

	rec := api.do(http.MethodPost, "/api/allocate", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, decode[experiment.Allocation](t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/allocate", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	api.server.ServeHTTP(raw, req)
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, want, decode[experiment.Allocation](t, raw))
}

func TestConvert_BadRequestIsIgnored(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodPost, "/api/convert", map[string]string{"user_id": "u-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	api.server.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusNoContent, raw.Code)
}

func TestConvert(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.createRunning("hero", 100)

	rec := api.do(http.MethodPost, "/api/allocate", map[string]string{"experiment": "hero", "user_id": "u-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/convert", map[string]any{"experiment": "hero", "user_id": "u-1", "value": 12.5})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Unknown experiments and unenrolled subjects are silently ignored.
	rec = api.do(http.MethodPost, "/api/convert", map[string]any{"experiment": "ghost", "user_id": "u-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodPost, "/api/convert", map[string]any{"experiment": "hero"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/experiments/%s/results", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode[domain.Analysis](t, rec)
	assert.EqualValues(t, 1, analysis.TotalUsers)

	var conversions int64
	var value float64
	for _, r := range analysis.Results {
		conversions += r.Conversions
		value += r.TotalValue
	}
	assert.EqualValues(t, 1, conversions)
	assert.Equal(t, 12.5, value)
}

func TestAssign(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createRunning("hero", 100)

	rec := api.do(http.MethodPost, "/api/assign", map[string]string{"experiment": "hero", "user_id": "qa", "variant": "b"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b", decode[map[string]string](t, rec)["variant"])

	rec = api.do(http.MethodPost, "/api/assign", map[string]string{"experiment": "hero", "user_id": "qa2", "variant": "zzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExperimentLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	def := map[string]any{
		"name":               "checkout",
		"traffic_percentage": 50,
		"variants": []map[string]any{
			{"variant_id": "control", "weight": 1},
			{"variant_id": "one-step", "weight": 1},
		},
	}
	rec := api.do(http.MethodPost, "/api/experiments", def)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id := created["id"].(string)
	assert.Equal(t, "draft", created["status"])

	rec = api.do(http.MethodPost, "/api/experiments", def)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate name")

	def["traffic_percentage"] = 80
	rec = api.do(http.MethodPut, "/api/experiments/"+id, def)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 80, decode[map[string]any](t, rec)["traffic_percentage"])

	rec = api.do(http.MethodPost, "/api/experiments/"+id+"/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "stop from draft")

	rec = api.do(http.MethodPost, "/api/experiments/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode[map[string]any](t, rec)["status"])

	rec = api.do(http.MethodPut, "/api/experiments/"+id, def)
	assert.Equal(t, http.StatusConflict, rec.Code, "update after start")

	rec = api.do(http.MethodPost, "/api/experiments/"+id+"/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/experiments/"+id+"/stop", map[string]string{"winner": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/experiments/"+id+"/stop", map[string]string{"winner": "one-step"})
	require.Equal(t, http.StatusOK, rec.Code)
	stopped := decode[map[string]any](t, rec)
	assert.Equal(t, "completed", stopped["status"])
	assert.Equal(t, "one-step", stopped["winner_variant"])

	rec = api.do(http.MethodGet, "/api/experiments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/experiments/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFound(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, path := range []string{"/api/experiments/ghost", "/api/experiments/ghost/results"} {
		rec := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := api.do(http.MethodPost, "/api/experiments/ghost/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := prometheus.NewRecorder()
	api := newTestAPI(t, recorder)
	api.createRunning("hero", 100)

	api.do(http.MethodPost, "/api/allocate", map[string]string{"experiment": "hero", "user_id": "u-1"})

	rec := api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `splitr_http_requests_total{code="200",method="POST",route="/api/allocate"} 1`)
}

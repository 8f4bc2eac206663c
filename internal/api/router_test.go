package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busgraph/busgraph/internal/api"
	"github.com/busgraph/busgraph/internal/api/models"
	"github.com/busgraph/busgraph/internal/graph"
	"github.com/busgraph/busgraph/internal/provider/resilience"
	"github.com/busgraph/busgraph/internal/transit"
)

type testStops struct {
	stops    map[string]*transit.Stop
	arrivals map[string][]transit.Arrival
}

func (s *testStops) FindStopsNear(_ context.Context, _, _ float64) ([]*transit.Stop, error) {
	out := make([]*transit.Stop, 0, len(s.stops))
	for _, id := range []string{"490000077E", "490000077F"} {
		if stop, ok := s.stops[id]; ok {
			out = append(out, stop)
		}
	}
	return out, nil
}

func (s *testStops) GetStopByID(_ context.Context, id string) (*transit.Stop, error) {
	stop, ok := s.stops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", transit.ErrStopNotFound, id)
	}
	return stop, nil
}

func (s *testStops) GetStopsByIDs(ctx context.Context, ids []string) ([]*transit.Stop, error) {
	out := make([]*transit.Stop, 0, len(ids))
	for _, id := range ids {
		stop, err := s.GetStopByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, stop)
	}
	return out, nil
}

func (s *testStops) GetArrivals(_ context.Context, stopID string) ([]transit.Arrival, error) {
	if _, ok := s.stops[stopID]; !ok {
		return nil, fmt.Errorf("%w: %s", transit.ErrStopNotFound, stopID)
	}
	return s.arrivals[stopID], nil
}

func newTestStops() *testStops {
	return &testStops{
		stops: map[string]*transit.Stop{
			"490000077E": {ID: "490000077E", CommonName: "Baker Street", Buses: []string{"13"}, StopLetter: strPtr("K")},
			"490000077F": {ID: "490000077F", CommonName: "Baker Street", Buses: []string{"274"}},
		},
		arrivals: map[string][]transit.Arrival{
			"490000077E": {{ID: "a1", LineName: "13", TimeToStation: 120}},
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	stops := newTestStops()
	schema, err := graph.NewSchema(stops)
	require.NoError(t, err)

	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "tfl", Registry: registry})

	return api.NewRouter(api.RouterConfig{
		Version:     "test",
		BuildTime:   "2026-01-01T00:00:00Z",
		Logger:      zerolog.New(io.Discard),
		Stops:       stops,
		Schema:      schema,
		Registry:    registry,
		CORSOrigins: []string{"https://studio.apollographql.com"},
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "tfl", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
}

func TestRouter_ListNearbyStops(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stops?lat=51.5226&lon=-0.1571", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var list models.StopList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "490000077E", list.Items[0].ID)
	assert.Equal(t, "490000077F", list.Items[1].ID)
}

func TestRouter_GetStop(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stops/490000077E", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stop models.Stop
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stop))
	assert.Equal(t, "Baker Street", stop.CommonName)
}

func TestRouter_GetStop_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stops/C", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_ListArrivals(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stops/490000077E/arrivals", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var list models.ArrivalList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "2 minutes", list.Items[0].TimeToStation)
}

func TestRouter_GraphQL(t *testing.T) {
	for _, path := range []string{"/graphql", "/"} {
		t.Run(path, func(t *testing.T) {
			router := newTestRouter(t)

			body := `{"query":"{ busStops(ids: [\"490000077F\", \"490000077E\"]) { id stopLetter } }"}`
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var result struct {
				Data struct {
					BusStops []struct {
						ID         string  `json:"id"`
						StopLetter *string `json:"stopLetter"`
					} `json:"busStops"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			require.Len(t, result.Data.BusStops, 2)
			assert.Equal(t, "490000077F", result.Data.BusStops[0].ID)
			assert.Nil(t, result.Data.BusStops[0].StopLetter)
			assert.Equal(t, "490000077E", result.Data.BusStops[1].ID)
		})
	}
}

func TestRouter_GraphQL_RejectsFormBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("query=%7B__typename%7D"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_GraphQL_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/graphql", http.NoBody)
	req.Header.Set("Origin", "https://studio.apollographql.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "https://studio.apollographql.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func strPtr(s string) *string {
	return &s
}

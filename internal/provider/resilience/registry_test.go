package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busgraph/busgraph/internal/provider/resilience"
)

func registeredClient(registry *resilience.Registry, name string, cb *resilience.CircuitBreakerConfig) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	if cb != nil {
		cfg.CircuitBreaker = cb
	}
	return resilience.NewClient(cfg)
}

func mustGet(t *testing.T, client *resilience.Client, url string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestRegistry_NewClientRegisters(t *testing.T) {
	registry := resilience.NewRegistry()
	client := registeredClient(registry, "tfl", nil)

	health, ok := registry.Health("tfl")
	require.True(t, ok)
	assert.Equal(t, "tfl", health.Name)
	assert.Equal(t, resilience.StatusHealthy, health.Status)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.LastSuccessAt.IsZero())
	assert.True(t, health.LastFailureAt.IsZero())
	assert.Equal(t, "tfl", client.Name())
}

func TestRegistry_Record(t *testing.T) {
	registry := resilience.NewRegistry()
	registeredClient(registry, "tfl", nil)

	registry.Record("tfl", nil)
	registry.Record("tfl", assert.AnError)

	health, ok := registry.Health("tfl")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), health.LastSuccessAt, time.Second)
	assert.WithinDuration(t, time.Now(), health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_UnknownProviderIsIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.Record("nonexistent", assert.AnError)

	_, ok := registry.Health("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, registry.Snapshot())
	assert.True(t, registry.Ready())
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"tfl-b", "tfl-c", "tfl-a"} {
		registeredClient(registry, name, nil)
	}

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "tfl-a", snapshot[0].Name)
	assert.Equal(t, "tfl-b", snapshot[1].Name)
	assert.Equal(t, "tfl-c", snapshot[2].Name)
}

func TestRegistry_ClientRecordsOutcomes(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient(registry, "tfl", nil)

	mustGet(t, client, server.URL)
	health, _ := registry.Health("tfl")
	assert.False(t, health.LastSuccessAt.IsZero())
	assert.True(t, health.LastFailureAt.IsZero())

	// 4xx is the caller's problem, not the provider's.
	status.Store(http.StatusNotFound)
	mustGet(t, client, server.URL)
	health, _ = registry.Health("tfl")
	assert.True(t, health.LastFailureAt.IsZero())

	status.Store(http.StatusBadGateway)
	mustGet(t, client, server.URL)
	health, _ = registry.Health("tfl")
	assert.False(t, health.LastFailureAt.IsZero())
	assert.Contains(t, health.LastError, "Bad Gateway")
	assert.Equal(t, uint32(1), health.ConsecutiveFailures)
}

func TestRegistry_ReadyFollowsCircuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient(registry, "tfl", &resilience.CircuitBreakerConfig{
		Name:        "tfl",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 },
	})

	assert.True(t, registry.Ready())

	mustGet(t, client, server.URL)

	assert.False(t, registry.Ready())
	health, _ := registry.Health("tfl")
	assert.Equal(t, resilience.StatusUnhealthy, health.Status)
	assert.Equal(t, "unhealthy", health.Status.String())
}

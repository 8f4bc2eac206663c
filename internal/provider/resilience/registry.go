package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Status summarizes a provider's circuit for health reporting.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "healthy"
	}
}

// statusOf maps a breaker state: half-open is degraded, open is unhealthy.
func statusOf(state gobreaker.State) Status {
	switch state {
	case gobreaker.StateHalfOpen:
		return StatusDegraded
	case gobreaker.StateOpen:
		return StatusUnhealthy
	default:
		return StatusHealthy
	}
}

// ProviderHealth is a point-in-time view of one upstream provider.
// Zero times mean the event has not happened since startup.
type ProviderHealth struct {
	Name                string
	Status              Status
	CircuitState        gobreaker.State
	ConsecutiveFailures uint32
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	LastError           string
}

// Registry tracks the resilient clients of each upstream provider and the outcome of
// their latest requests. It backs the readiness and status endpoints.
type Registry struct {
	mu        sync.Mutex
	providers map[string]*tracked
}

type tracked struct {
	client        *Client
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*tracked)}
}

// Register starts tracking client under name, replacing any earlier client.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &tracked{client: client}
}

// Record notes the outcome of a request to name; a nil err is a success.
// Unknown names are ignored.
func (r *Registry) Record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return
	}
	if err == nil {
		p.lastSuccessAt = time.Now()
		return
	}
	p.lastFailureAt = time.Now()
	p.lastError = err.Error()
}

// Health returns the current view of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return p.snapshot(name), true
}

// Snapshot returns every provider's health, ordered by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.Lock()
	out := make([]ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		out = append(out, p.snapshot(name))
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Ready reports whether no provider has an open circuit.
func (r *Registry) Ready() bool {
	for _, h := range r.Snapshot() {
		if h.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}

func (p *tracked) snapshot(name string) ProviderHealth {
	state := p.client.State()
	return ProviderHealth{
		Name:                name,
		Status:              statusOf(state),
		CircuitState:        state,
		ConsecutiveFailures: p.client.Counts().ConsecutiveFailures,
		LastSuccessAt:       p.lastSuccessAt,
		LastFailureAt:       p.lastFailureAt,
		LastError:           p.lastError,
	}
}

// Package resilience guards upstream provider calls with a circuit breaker
// and retry policy, and tracks provider health for the ops endpoints.
package resilience

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig mirrors the gobreaker settings the clients use.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of trial requests let through while half-open.
	MaxRequests uint32

	// Interval clears the counts while closed; zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// ReadyToTrip defaults to DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig opens after DefaultReadyToTrip, lets one trial request through
// after 30s, and forgets closed-state counts every minute.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips once at least five calls were decided and half or more
// failed. Excluded calls are not counted.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	decided := counts.Requests - min(counts.TotalExclusions, counts.Requests)
	return decided >= 5 && 2*counts.TotalFailures >= decided
}

// LogStateChanges logs breaker transitions: warn when leaving closed, info on recovery.
func LogStateChanges(log zerolog.Logger) func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		level := zerolog.WarnLevel
		if to == gobreaker.StateClosed {
			level = zerolog.InfoLevel
		}
		log.WithLevel(level).
			Str("provider", name).
			Stringer("from", from).
			Stringer("to", to).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker builds a typed gobreaker from cfg. Calls failing with
// ErrCallerGone count neither as successes nor as failures.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	trip := cfg.ReadyToTrip
	if trip == nil {
		trip = DefaultReadyToTrip
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   trip,
		OnStateChange: cfg.OnStateChange,
		IsExcluded:    isCallerGone,
	})
}

func isCallerGone(err error) bool {
	return errors.Is(err, ErrCallerGone)
}

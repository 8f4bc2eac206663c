// Package transit normalizes upstream stop and arrival data into the service's
// canonical Stop and Arrival values.
package transit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/busgraph/busgraph/internal/telemetry"
)

// Provider fetches raw stop and arrival records from the upstream transit API.
type Provider interface {
	// FetchStopsNear returns the raw stops around a point.
	FetchStopsNear(ctx context.Context, lat, lon float64) ([]RawStopRecord, error)

	// FetchStopByID returns the raw record for an identifier. Hubs and ambiguous
	// identifiers come back wrapping candidate stops in children.
	FetchStopByID(ctx context.Context, id string) (RawStopRecord, error)

	// FetchArrivals returns the raw arrival predictions for a stop.
	FetchArrivals(ctx context.Context, stopID string) ([]RawArrivalRecord, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the transit service.
type ServiceConfig struct {
	// Provider is the upstream transit data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Filter selects which stops a location search returns (default: FilterNone).
	Filter StopFilter

	// FanOutLimit caps concurrent upstream lookups in GetStopsByIDs (default: 8).
	FanOutLimit int

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics
}

// Service answers stop and arrival queries from the upstream provider.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	provider    Provider
	logger      zerolog.Logger
	filter      StopFilter
	fanOutLimit int
	metrics     *telemetry.ProviderMetrics
}

// NewService creates a new transit service.
func NewService(cfg ServiceConfig) *Service {
	filter := cfg.Filter
	if filter.Keep == nil {
		filter = FilterNone
	}

	fanOutLimit := cfg.FanOutLimit
	if fanOutLimit <= 0 {
		fanOutLimit = 8
	}

	return &Service{
		provider:    cfg.Provider,
		logger:      cfg.Logger,
		filter:      filter,
		fanOutLimit: fanOutLimit,
		metrics:     cfg.Metrics,
	}
}

// FindStopsNear returns the stops around a point in upstream order, after the stop filter.
func (s *Service) FindStopsNear(ctx context.Context, lat, lon float64) ([]*Stop, error) {
	start := time.Now()
	raw, err := s.provider.FetchStopsNear(ctx, lat, lon)
	s.metrics.RecordRequest(ctx, s.provider.Name(), "stops_near", time.Since(start), len(raw), err)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch stops near point")
		return nil, err
	}

	stops := make([]*Stop, 0, len(raw))
	for i := range raw {
		stop, err := Normalize(raw[i])
		if err != nil {
			s.logger.Error().Err(err).
				Int("index", i).
				Msg("malformed stop in location search")
			return nil, err
		}
		stops = append(stops, stop)
	}

	kept := s.filter.Apply(stops)
	if dropped := len(stops) - len(kept); dropped > 0 {
		s.logger.Debug().
			Str("filter", s.filter.Name).
			Int("dropped", dropped).
			Int("kept", len(kept)).
			Msg("stops filtered from location search")
	}

	return kept, nil
}

// GetStopByID returns the stop with the given identifier.
func (s *Service) GetStopByID(ctx context.Context, id string) (*Stop, error) {
	start := time.Now()
	raw, err := s.provider.FetchStopByID(ctx, id)
	s.metrics.RecordRequest(ctx, s.provider.Name(), "stop", time.Since(start), 1, err)
	if err != nil {
		if !errors.Is(err, ErrStopNotFound) && ctx.Err() == nil {
			s.logger.Error().Err(err).
				Str("stop_id", id).
				Str("provider", s.provider.Name()).
				Msg("failed to fetch stop")
		}
		return nil, err
	}

	selected, err := SelectStop(raw, id)
	if err != nil {
		return nil, err
	}

	return Normalize(selected)
}

// GetStopsByIDs looks up several stops concurrently. Results follow the order of ids.
// The first failure, in input order, fails the whole call and cancels outstanding lookups.
func (s *Service) GetStopsByIDs(ctx context.Context, ids []string) ([]*Stop, error) {
	stops := make([]*Stop, len(ids))
	errs := make([]error, len(ids))

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(s.fanOutLimit)

	for i, id := range ids {
		p.Go(func(ctx context.Context) error {
			stop, err := s.GetStopByID(ctx, id)
			if err != nil {
				errs[i] = err
				return err
			}
			stops[i] = stop
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, firstCause(errs, err)
	}

	return stops, nil
}

// firstCause picks the earliest error that was not caused by sibling cancellation.
func firstCause(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return fallback
}

// GetArrivals returns the predicted arrivals at a stop, soonest first.
func (s *Service) GetArrivals(ctx context.Context, stopID string) ([]Arrival, error) {
	start := time.Now()
	raw, err := s.provider.FetchArrivals(ctx, stopID)
	s.metrics.RecordRequest(ctx, s.provider.Name(), "arrivals", time.Since(start), len(raw), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("stop_id", stopID).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch arrivals")
		return nil, err
	}

	return Assemble(raw), nil
}

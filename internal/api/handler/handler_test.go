package handler_test

import (
	"context"
	"fmt"

	"github.com/busgraph/busgraph/internal/transit"
)

type stubService struct {
	near     []*transit.Stop
	stops    map[string]*transit.Stop
	arrivals map[string][]transit.Arrival
	err      error

	lastLat, lastLon float64
}

func (s *stubService) FindStopsNear(_ context.Context, lat, lon float64) ([]*transit.Stop, error) {
	s.lastLat, s.lastLon = lat, lon
	if s.err != nil {
		return nil, s.err
	}
	return s.near, nil
}

func (s *stubService) GetStopByID(_ context.Context, id string) (*transit.Stop, error) {
	if s.err != nil {
		return nil, s.err
	}
	stop, ok := s.stops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", transit.ErrStopNotFound, id)
	}
	return stop, nil
}

func (s *stubService) GetStopsByIDs(ctx context.Context, ids []string) ([]*transit.Stop, error) {
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

func (s *stubService) GetArrivals(_ context.Context, stopID string) ([]transit.Arrival, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.arrivals[stopID], nil
}

func strPtr(s string) *string { return &s }

func newStub() *stubService {
	baker := &transit.Stop{
		ID:         "490000077E",
		CommonName: "Baker Street",
		Buses:      []string{"13", "N113"},
		StopLetter: strPtr("K"),
		Towards:    strPtr("Marble Arch"),
	}
	return &stubService{
		near:  []*transit.Stop{baker},
		stops: map[string]*transit.Stop{baker.ID: baker},
		arrivals: map[string][]transit.Arrival{
			baker.ID: {
				{ID: "-1", LineName: "N113", TimeToStation: 30},
				{ID: "-2", LineName: "13", TimeToStation: 300},
			},
		},
	}
}

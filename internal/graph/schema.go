// Package graph exposes bus stops and arrivals as a federated GraphQL schema.
package graph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/busgraph/busgraph/internal/transit"
)

// StopService is the stop and arrival lookup the schema resolves against.
type StopService interface {
	FindStopsNear(ctx context.Context, lat, lon float64) ([]*transit.Stop, error)
	GetStopByID(ctx context.Context, id string) (*transit.Stop, error)
	GetStopsByIDs(ctx context.Context, ids []string) ([]*transit.Stop, error)
	GetArrivals(ctx context.Context, stopID string) ([]transit.Arrival, error)
}

// NewSchema builds the executable schema.
func NewSchema(svc StopService) (graphql.Schema, error) {
	r := &resolver{svc: svc}

	arrivalType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Arrival",
		Description: "A predicted bus arrival at a stop.",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return arrivalFrom(p).ID, nil
				},
			},
			"lineName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return arrivalFrom(p).LineName, nil
				},
			},
			"timeToStation": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Time until arrival, e.g. \"5 minutes\".",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return arrivalFrom(p).Humanized(), nil
				},
			},
		},
	})

	busStopType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "BusStop",
		Description: "A bus stop.",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return stopFrom(p).ID, nil
				},
			},
			"commonName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return stopFrom(p).CommonName, nil
				},
			},
			"buses": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Description: "Line names serving the stop.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return stopFrom(p).Buses, nil
				},
			},
			"stopLetter": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optional(stopFrom(p).StopLetter), nil
				},
			},
			"towards": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optional(stopFrom(p).Towards), nil
				},
			},
			"direction": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optional(stopFrom(p).Direction), nil
				},
			},
			"arrivals": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(arrivalType))),
				Description: "Predicted arrivals, soonest first.",
				Resolve:     r.arrivals,
			},
		},
	})

	fed := newFederation(busStopType, r)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"findBusStop": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(busStopType))),
				Description: "Bus stops around a point.",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: r.findBusStop,
			},
			"busStop": &graphql.Field{
				Type: graphql.NewNonNull(busStopType),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.busStop,
			},
			"busStops": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(busStopType))),
				Args: graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
					},
				},
				Resolve: r.busStops,
			},
			"_service":  fed.serviceField(),
			"_entities": fed.entitiesField(),
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
		Types: []graphql.Type{fed.anyScalar, fed.entityUnion},
	})
}

type resolver struct {
	svc StopService
}

func (r *resolver) findBusStop(p graphql.ResolveParams) (interface{}, error) {
	lat, latOK := p.Args["latitude"].(float64)
	lon, lonOK := p.Args["longitude"].(float64)
	if !latOK || !lonOK {
		return nil, badRequest("latitude and longitude are required")
	}

	stops, err := r.svc.FindStopsNear(p.Context, lat, lon)
	if err != nil {
		return nil, wrapError(err)
	}
	return stops, nil
}

func (r *resolver) busStop(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	if id == "" {
		return nil, badRequest("id is required")
	}

	stop, err := r.svc.GetStopByID(p.Context, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return stop, nil
}

func (r *resolver) busStops(p graphql.ResolveParams) (interface{}, error) {
	ids, err := stringList(p.Args["ids"])
	if err != nil {
		return nil, badRequest(err.Error())
	}

	stops, err := r.svc.GetStopsByIDs(p.Context, ids)
	if err != nil {
		return nil, wrapError(err)
	}
	return stops, nil
}

func (r *resolver) arrivals(p graphql.ResolveParams) (interface{}, error) {
	arrivals, err := r.svc.GetArrivals(p.Context, stopFrom(p).ID)
	if err != nil {
		return nil, wrapError(err)
	}
	return arrivals, nil
}

func stopFrom(p graphql.ResolveParams) *transit.Stop {
	switch s := p.Source.(type) {
	case *transit.Stop:
		return s
	case transit.Stop:
		return &s
	}
	return &transit.Stop{}
}

func arrivalFrom(p graphql.ResolveParams) transit.Arrival {
	switch a := p.Source.(type) {
	case transit.Arrival:
		return a
	case *transit.Arrival:
		return *a
	}
	return transit.Arrival{}
}

// optional turns a nil pointer into a GraphQL null.
func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringList(v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of ids")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("ids must be non-empty strings")
		}
		out = append(out, s)
	}
	return out, nil
}

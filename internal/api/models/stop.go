package models

import "github.com/busgraph/busgraph/internal/transit"

// NearbyStopsQuery is the query string of GET /v1/stops.
type NearbyStopsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// Stop is a bus stop in REST responses.
type Stop struct {
	ID         string   `json:"id"`
	CommonName string   `json:"commonName"`
	Buses      []string `json:"buses"`
	StopLetter *string  `json:"stopLetter"`
	Towards    *string  `json:"towards"`
	Direction  *string  `json:"direction"`
}

// StopList wraps a list of stops.
type StopList struct {
	Items []Stop `json:"items"`
}

// Arrival is a predicted arrival in REST responses.
type Arrival struct {
	ID                   string `json:"id"`
	LineName             string `json:"lineName"`
	TimeToStation        string `json:"timeToStation"`
	TimeToStationSeconds int    `json:"timeToStationSeconds"`
}

// ArrivalList wraps the arrivals at a stop, soonest first.
type ArrivalList struct {
	StopID string    `json:"stopId"`
	Items  []Arrival `json:"items"`
}

// StopFromTransit converts a normalized stop.
func StopFromTransit(s *transit.Stop) Stop {
	buses := s.Buses
	if buses == nil {
		buses = []string{}
	}
	return Stop{
		ID:         s.ID,
		CommonName: s.CommonName,
		Buses:      buses,
		StopLetter: s.StopLetter,
		Towards:    s.Towards,
		Direction:  s.Direction,
	}
}

// StopListFromTransit converts a list of normalized stops.
func StopListFromTransit(stops []*transit.Stop) StopList {
	items := make([]Stop, 0, len(stops))
	for _, s := range stops {
		items = append(items, StopFromTransit(s))
	}
	return StopList{Items: items}
}

// ArrivalListFromTransit converts assembled arrivals, keeping their order.
func ArrivalListFromTransit(stopID string, arrivals []transit.Arrival) ArrivalList {
	items := make([]Arrival, 0, len(arrivals))
	for _, a := range arrivals {
		items = append(items, Arrival{
			ID:                   a.ID,
			LineName:             a.LineName,
			TimeToStation:        a.Humanized(),
			TimeToStationSeconds: a.TimeToStation,
		})
	}
	return ArrivalList{StopID: stopID, Items: items}
}

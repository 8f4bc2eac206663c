package transit

import "fmt"

// StopFilter decides whether a normalized stop belongs in a location search result.
//
// A broad geographic search can return non-bus transit points (rail platforms, piers).
// Whether those should be dropped is a product decision, so it is a named policy rather
// than something the normalizer does on its own.
type StopFilter struct {
	Name string
	Keep func(*Stop) bool
}

// Well-known filter names, as used by the STOP_FILTER setting.
const (
	FilterNameNone              = "none"
	FilterNameRequireStopLetter = "stop-letter"
)

var (
	// FilterNone keeps every stop.
	FilterNone = StopFilter{
		Name: FilterNameNone,
		Keep: func(*Stop) bool { return true },
	}

	// FilterRequireStopLetter keeps only stops with a resolvable stop letter,
	// i.e. conventional on-street bus stops.
	FilterRequireStopLetter = StopFilter{
		Name: FilterNameRequireStopLetter,
		Keep: func(s *Stop) bool { return s.StopLetter != nil },
	}
)

// ParseStopFilter returns the filter registered under name. An empty name selects FilterNone.
func ParseStopFilter(name string) (StopFilter, error) {
	switch name {
	case "", FilterNameNone:
		return FilterNone, nil
	case FilterNameRequireStopLetter:
		return FilterRequireStopLetter, nil
	default:
		return StopFilter{}, fmt.Errorf("unknown stop filter %q", name)
	}
}

// Apply returns the stops the filter keeps, preserving order.
func (f StopFilter) Apply(stops []*Stop) []*Stop {
	if f.Keep == nil {
		return stops
	}
	kept := make([]*Stop, 0, len(stops))
	for _, s := range stops {
		if f.Keep(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

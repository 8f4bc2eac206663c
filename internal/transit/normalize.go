package transit

import "fmt"

// Property keys resolved for optional stop attributes.
const (
	KeyStopLetter = "stopLetter"
	KeyTowards    = "Towards"
	KeyDirection  = "Direction"
)

// ResolveProperty looks up key on a raw stop.
//
// A flat field wins over an additionalProperties entry, which wins over the children.
// Children are searched depth-first and the first resolved value is returned.
// The second return value is false when nothing resolves.
func ResolveProperty(raw RawStopRecord, key string) (string, bool) {
	for _, src := range raw.sources() {
		if v, ok := src.lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// Normalize converts a raw stop into a Stop.
func Normalize(raw RawStopRecord) (*Stop, error) {
	id := raw.Flat["id"]
	if id == "" {
		return nil, &MissingFieldError{Field: "id"}
	}

	name := raw.Flat["commonName"]
	if name == "" {
		return nil, &MissingFieldError{Field: "commonName"}
	}

	buses := make([]string, 0, len(raw.Lines))
	for _, line := range raw.Lines {
		buses = append(buses, line.Name)
	}

	return &Stop{
		ID:         id,
		CommonName: name,
		Buses:      buses,
		StopLetter: resolveOptional(raw, KeyStopLetter),
		Towards:    resolveOptional(raw, KeyTowards),
		Direction:  resolveOptional(raw, KeyDirection),
	}, nil
}

func resolveOptional(raw RawStopRecord, key string) *string {
	v, ok := ResolveProperty(raw, key)
	if !ok {
		return nil
	}
	return &v
}

// SelectStop picks the record for id out of an identifier lookup response.
// Hubs come back wrapping their stops in children, so those are searched depth-first.
func SelectStop(raw RawStopRecord, id string) (RawStopRecord, error) {
	if found, ok := findByID(raw, id); ok {
		return found, nil
	}
	return RawStopRecord{}, fmt.Errorf("%w: %s", ErrStopNotFound, id)
}

func findByID(raw RawStopRecord, id string) (RawStopRecord, bool) {
	if raw.ID() == id {
		return raw, true
	}
	for _, child := range raw.Children {
		if found, ok := findByID(child, id); ok {
			return found, true
		}
	}
	return RawStopRecord{}, false
}

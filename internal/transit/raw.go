package transit

import (
	"encoding/json"
	"fmt"
)

// Top-level raw stop keys with structured (non-scalar) values.
const (
	rawKeyLines      = "lines"
	rawKeyProperties = "additionalProperties"
	rawKeyChildren   = "children"
)

// RawStopRecord is a stop as returned by the provider.
//
// The provider mixes three shapes between endpoints: scalar fields at the top level,
// key/value pairs in additionalProperties, and nested candidate records in children.
// Each shape keeps its own slot so resolution can walk them in a fixed order.
type RawStopRecord struct {
	// Flat holds every top-level string-valued field, keyed by JSON name.
	Flat map[string]string

	Lines                []RawLine
	AdditionalProperties []RawProperty
	Children             []RawStopRecord
}

// ID returns the record's id field, or "" when absent.
func (r RawStopRecord) ID() string {
	return r.Flat["id"]
}

// UnmarshalJSON decodes a raw stop, keeping all top-level string fields as flat fields.
func (r *RawStopRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	out := RawStopRecord{Flat: make(map[string]string, len(fields))}

	for key, value := range fields {
		switch key {
		case rawKeyLines:
			if err := decodeOptional(value, &out.Lines); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
		case rawKeyProperties:
			if err := decodeOptional(value, &out.AdditionalProperties); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
		case rawKeyChildren:
			if err := decodeOptional(value, &out.Children); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
		default:
			var s string
			if json.Unmarshal(value, &s) == nil && string(value) != "null" {
				out.Flat[key] = s
			}
		}
	}

	*r = out
	return nil
}

// decodeOptional decodes value into dst unless it is JSON null.
func decodeOptional(value json.RawMessage, dst any) error {
	if string(value) == "null" {
		return nil
	}
	return json.Unmarshal(value, dst)
}

// propertySource is one of the places a stop attribute can be read from.
type propertySource interface {
	lookup(key string) (string, bool)
}

type flatFields map[string]string

func (f flatFields) lookup(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

type propertyList []RawProperty

func (p propertyList) lookup(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

type childRecords []RawStopRecord

func (c childRecords) lookup(key string) (string, bool) {
	for i := range c {
		if v, ok := ResolveProperty(c[i], key); ok {
			return v, true
		}
	}
	return "", false
}

// sources returns the record's shapes in resolution order.
func (r RawStopRecord) sources() []propertySource {
	return []propertySource{
		flatFields(r.Flat),
		propertyList(r.AdditionalProperties),
		childRecords(r.Children),
	}
}

package transit

import (
	"errors"
	"fmt"
	"strconv"
)

// Transit errors.
var (
	ErrMissingRequiredField = errors.New("upstream record missing required field")
	ErrStopNotFound         = errors.New("stop not found")
	ErrUpstreamUnavailable  = errors.New("transit provider unavailable")
	ErrUpstreamRejected     = errors.New("transit provider rejected request")
)

// MissingFieldError reports a raw record that lacks a field every stop must have.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, e.Field)
}

// Is reports ErrMissingRequiredField as matching.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// UpstreamError wraps a failed call to the transit provider.
// Kind is either ErrUpstreamUnavailable or ErrUpstreamRejected.
type UpstreamError struct {
	Kind       error
	StatusCode int
	Operation  string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Kind.Error()
	if e.Operation != "" {
		msg = e.Operation + ": " + msg
	}
	if e.StatusCode != 0 {
		msg += " (status " + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *UpstreamError) Is(target error) bool {
	return target == e.Kind
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Stop is a normalized bus stop.
type Stop struct {
	// ID is the upstream stop identifier (NaPTAN code for TfL).
	ID string `json:"id"`

	// CommonName is the human-readable stop name.
	CommonName string `json:"commonName"`

	// Buses lists the line names serving the stop in upstream order.
	Buses []string `json:"buses"`

	// StopLetter distinguishes stops sharing a site (e.g. "K"). Nil when unknown.
	StopLetter *string `json:"stopLetter,omitempty"`

	// Towards is a free-text destination description. Nil when unknown.
	Towards *string `json:"towards,omitempty"`

	// Direction is a compass/orientation description. Nil when unknown.
	Direction *string `json:"direction,omitempty"`
}

// Arrival is a single predicted arrival at a stop.
type Arrival struct {
	// ID identifies the prediction, not the stop.
	ID string `json:"id"`

	// LineName is the route name, e.g. "24" or "N5".
	LineName string `json:"lineName"`

	// TimeToStation is the predicted number of seconds until arrival.
	// Zero or negative means due or just departed.
	TimeToStation int `json:"-"`
}

// RawArrivalRecord is an arrival prediction as returned by the provider.
type RawArrivalRecord struct {
	ID            string `json:"id"`
	LineName      string `json:"lineName"`
	TimeToStation int    `json:"timeToStation"`
}

// RawLine is an entry in a raw stop's lines list.
type RawLine struct {
	Name string `json:"name"`
}

// RawProperty is an entry in a raw stop's additionalProperties list.
type RawProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

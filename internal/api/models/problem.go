package models

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/busgraph/busgraph/internal/transit"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation           = "https://busgraph.dev/problems/validation-error"
	ProblemTypeNotFound             = "https://busgraph.dev/problems/not-found"
	ProblemTypeUnsupportedMediaType = "https://busgraph.dev/problems/unsupported-media-type"
	ProblemTypeTooManyRequests      = "https://busgraph.dev/problems/too-many-requests"
	ProblemTypeTLSRequired          = "https://busgraph.dev/problems/tls-required"
	ProblemTypeInternal             = "https://busgraph.dev/problems/internal-error"
	ProblemTypeBadGateway           = "https://busgraph.dev/problems/bad-gateway"
	ProblemTypeUnavailable          = "https://busgraph.dev/problems/service-unavailable"
)

type problemKind struct {
	uri   string
	title string
}

// problemKinds lists every status the API answers with a problem body.
var problemKinds = map[int]problemKind{
	http.StatusBadRequest:           {ProblemTypeValidation, "Validation error"},
	http.StatusForbidden:            {ProblemTypeTLSRequired, "TLS required"},
	http.StatusNotFound:             {ProblemTypeNotFound, "Not found"},
	http.StatusUnsupportedMediaType: {ProblemTypeUnsupportedMediaType, "Unsupported media type"},
	http.StatusTooManyRequests:      {ProblemTypeTooManyRequests, "Too many requests"},
	http.StatusInternalServerError:  {ProblemTypeInternal, "Internal server error"},
	http.StatusBadGateway:           {ProblemTypeBadGateway, "Bad gateway"},
	http.StatusServiceUnavailable:   {ProblemTypeUnavailable, "Service unavailable"},
}

// NewProblem builds the problem for an HTTP status.
// Statuses without a registered kind fall back to the internal error type.
func NewProblem(status int, traceID, detail string) *Problem {
	kind, ok := problemKinds[status]
	if !ok {
		kind = problemKinds[http.StatusInternalServerError]
	}
	return &Problem{
		Type:    kind.uri,
		Title:   kind.title,
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// ProblemFromError classifies a transit service error.
// Only the classification reaches the client; the wrapped upstream detail does not.
func ProblemFromError(err error, traceID string) *Problem {
	switch {
	case errors.Is(err, transit.ErrStopNotFound):
		return NewProblem(http.StatusNotFound, traceID, "bus stop not found")
	case errors.Is(err, transit.ErrUpstreamRejected):
		return NewProblem(http.StatusBadGateway, traceID, "the transit provider rejected the request")
	case errors.Is(err, transit.ErrMissingRequiredField):
		return NewProblem(http.StatusBadGateway, traceID, "the transit provider returned an incomplete record")
	case errors.Is(err, transit.ErrUpstreamUnavailable):
		return NewProblem(http.StatusServiceUnavailable, traceID, "the transit provider is unavailable")
	default:
		return NewProblem(http.StatusInternalServerError, traceID, "an unexpected error occurred")
	}
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errs []FieldError) *Problem {
	p.Errors = errs
	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

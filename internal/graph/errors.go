package graph

import (
	"errors"

	"github.com/busgraph/busgraph/internal/transit"
)

// Error codes reported in extensions.code.
const (
	CodeStopNotFound        = "STOP_NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeBadUpstreamRecord   = "BAD_UPSTREAM_RECORD"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInternal            = "INTERNAL"
)

// Error is a resolver error carrying a machine-readable code.
// It satisfies gqlerrors.ExtendedError so the code lands in the response extensions.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions returns the GraphQL error extensions.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// wrapError classifies a service error for the GraphQL response.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}

	code := CodeInternal
	msg := "internal error"
	switch {
	case errors.Is(err, transit.ErrStopNotFound):
		code, msg = CodeStopNotFound, err.Error()
	case errors.Is(err, transit.ErrUpstreamUnavailable):
		code, msg = CodeUpstreamUnavailable, "transit provider unavailable"
	case errors.Is(err, transit.ErrUpstreamRejected):
		code, msg = CodeUpstreamRejected, "transit provider rejected the request"
	case errors.Is(err, transit.ErrMissingRequiredField):
		code, msg = CodeBadUpstreamRecord, err.Error()
	}

	return &Error{Code: code, Message: msg, Err: err}
}

func badRequest(msg string) error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

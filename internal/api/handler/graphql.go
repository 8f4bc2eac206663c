package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"github.com/busgraph/busgraph/internal/api/middleware"
	"github.com/busgraph/busgraph/internal/api/response"
)

// maxGraphQLBodyBytes bounds the size of a POSTed GraphQL request.
const maxGraphQLBodyBytes = 1 << 20

// GraphQLRequest is the standard GraphQL-over-HTTP request body.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLHandler executes GraphQL requests against a schema.
type GraphQLHandler struct {
	schema graphql.Schema
	logger zerolog.Logger
}

// NewGraphQLHandler creates a new GraphQLHandler.
func NewGraphQLHandler(schema graphql.Schema, logger zerolog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		schema: schema,
		logger: logger,
	}
}

// ServeHTTP handles GET and POST /graphql.
// Field errors are reported in the result body with status 200.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				response.BadRequest(w, r, "variables must be a JSON object", nil)
				return
			}
		}
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, maxGraphQLBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.BadRequest(w, r, "request body too large", nil)
				return
			}
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if req.Query == "" {
		response.BadRequest(w, r, "query is required", nil)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	if result.HasErrors() {
		h.logger.Debug().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("operation", req.OperationName).
			Int("errors", len(result.Errors)).
			Msg("graphql request completed with errors")
	}

	response.JSON(w, r, http.StatusOK, result)
}

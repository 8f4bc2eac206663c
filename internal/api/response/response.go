// Package response writes JSON and problem responses for the REST handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/busgraph/busgraph/internal/api/middleware"
	"github.com/busgraph/busgraph/internal/api/models"
)

// JSON writes data as a JSON body. The request ID is echoed for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a problem for status with the given detail.
func Error(w http.ResponseWriter, r *http.Request, status int, detail string) {
	write(w, r, models.NewProblem(status, middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a 400 problem listing the offending fields.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, fieldErrs []models.FieldError) {
	problem := models.NewProblem(http.StatusBadRequest, middleware.GetRequestID(r.Context()), detail)
	write(w, r, problem.WithErrors(fieldErrs))
}

// TransitError writes the problem matching a transit service error.
func TransitError(w http.ResponseWriter, r *http.Request, err error) {
	write(w, r, models.ProblemFromError(err, middleware.GetRequestID(r.Context())))
}

func write(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

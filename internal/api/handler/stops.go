package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/busgraph/busgraph/internal/api/models"
	"github.com/busgraph/busgraph/internal/api/response"
	"github.com/busgraph/busgraph/internal/transit"
)

// StopService is the part of the transit service the REST handlers call.
type StopService interface {
	FindStopsNear(ctx context.Context, lat, lon float64) ([]*transit.Stop, error)
	GetStopByID(ctx context.Context, id string) (*transit.Stop, error)
	GetArrivals(ctx context.Context, stopID string) ([]transit.Arrival, error)
}

// StopHandler handles bus stop endpoints.
type StopHandler struct {
	svc      StopService
	validate *validator.Validate
}

// NewStopHandler creates a new StopHandler.
func NewStopHandler(svc StopService) *StopHandler {
	return &StopHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

// ListNearby handles GET /v1/stops?lat=&lon= - bus stops near a coordinate.
func (h *StopHandler) ListNearby(w http.ResponseWriter, r *http.Request) {
	query, fieldErrs := parseNearbyQuery(r)
	if len(fieldErrs) == 0 {
		fieldErrs = h.validationErrors(query)
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	stops, err := h.svc.FindStopsNear(r.Context(), query.Lat, query.Lon)
	if err != nil {
		response.TransitError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.StopListFromTransit(stops))
}

// GetStop handles GET /v1/stops/{stopId} - a single bus stop.
func (h *StopHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	if stopID == "" {
		response.BadRequest(w, r, "stopId is required", nil)
		return
	}

	stop, err := h.svc.GetStopByID(r.Context(), stopID)
	if err != nil {
		response.TransitError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.StopFromTransit(stop))
}

// ListArrivals handles GET /v1/stops/{stopId}/arrivals - arrivals soonest first.
func (h *StopHandler) ListArrivals(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	if stopID == "" {
		response.BadRequest(w, r, "stopId is required", nil)
		return
	}

	arrivals, err := h.svc.GetArrivals(r.Context(), stopID)
	if err != nil {
		response.TransitError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ArrivalListFromTransit(stopID, arrivals))
}

func parseNearbyQuery(r *http.Request) (models.NearbyStopsQuery, []models.FieldError) {
	var (
		query models.NearbyStopsQuery
		errs  []models.FieldError
	)
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be a decimal number", Code: "type"})
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be a decimal number", Code: "type"})
	}

	query.Lat, query.Lon = lat, lon
	return query, errs
}

func (h *StopHandler) validationErrors(query models.NearbyStopsQuery) []models.FieldError {
	err := h.validate.Struct(query)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "query", Message: err.Error()}}
	}

	fieldErrs := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := "lat"
		if fe.Field() == "Lon" {
			field = "lon"
		}
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   field,
			Message: "out of range",
			Code:    fe.Tag(),
		})
	}
	return fieldErrs
}

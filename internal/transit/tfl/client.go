// Package tfl implements the transit provider against the Transport for London Unified API.
package tfl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/busgraph/busgraph/internal/provider/resilience"
	"github.com/busgraph/busgraph/internal/transit"
)

const (
	// ProviderName identifies this transit provider.
	ProviderName = "tfl"

	// DefaultBaseURL is the TfL Unified API base URL.
	DefaultBaseURL = "https://api.tfl.gov.uk"

	// DefaultStopTypes restricts location searches to bus, coach and tram stops.
	DefaultStopTypes = "NaptanPublicBusCoachTram"

	// DefaultUserAgent is sent on every request; TfL sits behind Cloudflare,
	// which rejects requests without one.
	DefaultUserAgent = "busgraph/1.0"

	tracerName = "github.com/busgraph/busgraph/internal/transit/tfl"
)

// ClientConfig holds configuration for the TfL client.
type ClientConfig struct {
	// AppKey is the TfL API application key. Optional; anonymous access is rate limited.
	AppKey string

	// BaseURL is the API base URL (optional, defaults to the TfL API).
	BaseURL string

	// StopTypes is the stopTypes filter for location searches (optional).
	StopTypes string

	// Radius is the search radius in metres for location searches (optional; TfL defaults to 200).
	Radius int

	// UserAgent overrides DefaultUserAgent (optional).
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TfL StopPoint API client.
type Client struct {
	appKey     string
	baseURL    string
	stopTypes  string
	radius     int
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new TfL client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	stopTypes := cfg.StopTypes
	if stopTypes == "" {
		stopTypes = DefaultStopTypes
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		appKey:     cfg.AppKey,
		baseURL:    baseURL,
		stopTypes:  stopTypes,
		radius:     cfg.Radius,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchStopsNear fetches the stop points around a coordinate.
func (c *Client) FetchStopsNear(ctx context.Context, lat, lon float64) ([]transit.RawStopRecord, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("stopTypes", c.stopTypes)
	if c.radius > 0 {
		query.Set("radius", strconv.Itoa(c.radius))
	}

	var resp stopPointsResponse
	if err := c.get(ctx, "stops_near", "/StopPoint", query, &resp); err != nil {
		return nil, err
	}

	return resp.StopPoints, nil
}

// FetchStopByID fetches a single stop point. A 404 is reported as transit.ErrStopNotFound.
func (c *Client) FetchStopByID(ctx context.Context, id string) (transit.RawStopRecord, error) {
	var stop transit.RawStopRecord
	err := c.get(ctx, "stop", "/StopPoint/"+url.PathEscape(id), nil, &stop)
	if err != nil {
		var upstreamErr *transit.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusNotFound {
			return transit.RawStopRecord{}, fmt.Errorf("%w: %s", transit.ErrStopNotFound, id)
		}
		return transit.RawStopRecord{}, err
	}
	return stop, nil
}

// FetchArrivals fetches the arrival predictions for a stop point.
func (c *Client) FetchArrivals(ctx context.Context, stopID string) ([]transit.RawArrivalRecord, error) {
	var arrivals []transit.RawArrivalRecord
	if err := c.get(ctx, "arrivals", "/StopPoint/"+url.PathEscape(stopID)+"/Arrivals", nil, &arrivals); err != nil {
		return nil, err
	}
	return arrivals, nil
}

// get performs a GET against path and decodes the JSON body into out.
// Transport failures, open circuits and 5xx become ErrUpstreamUnavailable; 4xx become ErrUpstreamRejected.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "tfl."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.name", ProviderName),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if query == nil {
		query = url.Values{}
	}
	if c.appKey != "" {
		query.Set("app_key", c.appKey)
	}

	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transit.UpstreamError{Kind: transit.ErrUpstreamUnavailable, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode >= 500:
		return &transit.UpstreamError{Kind: transit.ErrUpstreamUnavailable, Operation: operation, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &transit.UpstreamError{Kind: transit.ErrUpstreamRejected, Operation: operation, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return &transit.UpstreamError{
			Kind:       transit.ErrUpstreamUnavailable,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn().Err(err).
			Str("operation", operation).
			Msg("undecodable response from tfl")
		return &transit.UpstreamError{
			Kind:      transit.ErrUpstreamUnavailable,
			Operation: operation,
			Err:       fmt.Errorf("decoding response: %w", err),
		}
	}

	return nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// TfL API response structures.

type stopPointsResponse struct {
	StopPoints []transit.RawStopRecord `json:"stopPoints"`
}

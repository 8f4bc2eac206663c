package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/busgraph/busgraph/internal/api/models"
)

// RateLimitConfig is a fixed request budget per sliding window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// GraphQLRateLimit budgets /graphql, where a single query can fan out to
// one upstream lookup per stop.
var GraphQLRateLimit = RateLimitConfig{RequestLimit: 60, WindowLength: time.Minute}

// StandardRateLimit budgets the REST stop and arrival endpoints.
var StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}

// RateLimitByIP limits each client IP. Run it behind chi's RealIP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(httprate.KeyByRealIP)
}

// RateLimitByIPAndEndpoint gives each client IP a separate budget per path,
// so polling one stop's arrivals leaves lookups of other stops untouched.
func RateLimitByIPAndEndpoint(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(httprate.KeyByRealIP, httprate.KeyByEndpoint)
}

func (cfg RateLimitConfig) limiter(keys ...httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.RequestLimit, cfg.WindowLength,
		httprate.WithKeyFuncs(keys...),
		httprate.WithLimitHandler(cfg.tooManyRequests),
	)
}

// tooManyRequests answers with a 429 problem. httprate does not expose when
// the window resets, so Retry-After is the whole window.
func (cfg RateLimitConfig) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds()))))

	detail := fmt.Sprintf("rate limit of %d requests per %s exceeded", cfg.RequestLimit, cfg.WindowLength)
	models.NewProblem(http.StatusTooManyRequests, GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

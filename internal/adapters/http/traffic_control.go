package httpadapter

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	msgRateLimited = "rate limit exceeded"
	msgOverloaded  = "server is overloaded"
)

// rateLimitMiddleware applies one shared token bucket. rps <= 0 disables it.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, onLimited func()) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(1/rps))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			if onLimited != nil {
				onLimited()
			}
			w.Header().Set("Retry-After", retryAfter)
			writeJSON(w, http.StatusTooManyRequests, statusResponse{Status: statusError, Message: msgRateLimited})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps concurrent requests and sheds load with 503
// once a slot cannot be acquired within wait. maxInFlight <= 0 disables it.
// Retry-After on a shed response tells clients the handler never ran.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: statusError, Message: msgOverloaded})
		case <-r.Context().Done():
		}
	})
}

func bodyLimitMiddleware(next http.Handler, limit int64) http.Handler {
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

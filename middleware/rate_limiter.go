// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/punguzo/mlm_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

type RateLimiter struct {
	limiters       map[string]*rate.Limiter
	blockedIPs     map[string]time.Time
	mu             sync.Mutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
}

// NewRateLimiter limits every client IP globally and registration to registrationsPerHour per IP.
func NewRateLimiter(registrationsPerHour int) *RateLimiter {
	limiter := &RateLimiter{
		limiters:       make(map[string]*rate.Limiter),
		blockedIPs:     make(map[string]time.Time),
		defaultLimit:   rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:   20,
		blockDuration:  5 * time.Minute,
		endpointLimits: make(map[string]endpointLimit),
		now:            time.Now,
	}

	if registrationsPerHour > 0 {
		limiter.endpointLimits["/api/auth/register"] = endpointLimit{
			limit: rate.Every(time.Hour / time.Duration(registrationsPerHour)),
			burst: registrationsPerHour,
		}
	}

	// Login endpoint - strict rate limiting to prevent PIN brute force
	limiter.endpointLimits["/api/auth/login"] = endpointLimit{
		limit: rate.Every(2 * time.Second),
		burst: 5,
	}

	return limiter
}

// Cleanup drops expired blocks until done is closed.
func (r *RateLimiter) Cleanup(done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, blockUntil := range r.blockedIPs {
				if now.After(blockUntil) {
					delete(r.blockedIPs, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, "/uploads/") {
				return next(c)
			}
			ip := c.RealIP()
			path := c.Path()

			r.mu.Lock()
			if blockUntil, blocked := r.blockedIPs[ip]; blocked {
				if r.now().Before(blockUntil) {
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil)
				}
				delete(r.blockedIPs, ip)
			}
			r.mu.Unlock()

			// Endpoint limits are tracked separately so a registration burst does
			// not eat into the client's general budget.
			key, limit, burst := ip, r.defaultLimit, r.defaultBurst
			if el, ok := r.endpointLimits[path]; ok {
				key, limit, burst = ip+"|"+path, el.limit, el.burst
			}

			if !r.getLimiter(key, limit, burst).Allow() {
				if key == ip {
					blockUntil := r.now().Add(r.blockDuration)
					r.mu.Lock()
					r.blockedIPs[ip] = blockUntil
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil)
				}
				return tooManyRequests(c, time.Time{})
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter time.Time) error {
	resp := models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests",
	}
	if !retryAfter.IsZero() {
		resp.Data = map[string]string{"retryAfter": retryAfter.Format(time.RFC3339)}
	}
	return c.JSON(http.StatusTooManyRequests, resp)
}

func (r *RateLimiter) getLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		r.limiters[key] = limiter
	}
	return limiter
}

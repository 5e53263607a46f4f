package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов по ключу (обычно IP).
// Фиксированное окно: в пределах window разрешено не более rate
// запросов, счетчик сбрасывается по истечении окна.
type RateLimiter struct {
	logger  *slog.Logger
	entries map[string]*windowEntry
	rate    int
	window  time.Duration
	mu      sync.Mutex
}

type windowEntry struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter создает limiter на rate запросов за window
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		logger:  logger,
		entries: make(map[string]*windowEntry),
		rate:    rate,
		window:  window,
	}
}

// Allow сообщает, разрешен ли запрос для ключа, и учитывает его
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Попутно выбрасываем давно не активные ключи
	if len(rl.entries) > 1024 {
		for k, e := range rl.entries {
			if now.Sub(e.windowStart) > rl.window*2 {
				delete(rl.entries, k)
			}
		}
	}

	e, ok := rl.entries[key]
	if !ok || now.Sub(e.windowStart) >= rl.window {
		rl.entries[key] = &windowEntry{windowStart: now, count: 1}
		return true
	}

	if e.count >= rl.rate {
		return false
	}
	e.count++
	return true
}

// PathRateLimit лимит для конкретного пути
type PathRateLimit struct {
	Path   string
	Rate   int
	Window time.Duration
}

// RateLimitMiddleware ограничивает все запросы одним лимитом по IP
func RateLimitMiddleware(rate int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, window, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(limiter, w, r, logger) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByPathMiddleware задает отдельные лимиты перечисленным
// путям и общий лимит всем остальным. Открытие сессии и чат дороже
// обычного CRUD, поэтому лимитируются жестче.
func RateLimitByPathMiddleware(limits []PathRateLimit, defaultRate int, defaultWindow time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	limiters := make(map[string]*RateLimiter, len(limits))
	for _, l := range limits {
		limiters[l.Path] = NewRateLimiter(l.Rate, l.Window, logger)
	}
	defaultLimiter := NewRateLimiter(defaultRate, defaultWindow, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, ok := limiters[r.URL.Path]
			if !ok {
				limiter = defaultLimiter
			}
			if !allow(limiter, w, r, logger) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allow(limiter *RateLimiter, w http.ResponseWriter, r *http.Request, logger *slog.Logger) bool {
	key := clientIP(r)
	if limiter.Allow(key) {
		return true
	}

	logger.Warn("rate limit exceeded",
		"ip", key,
		"method", r.Method,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, please try again later"}`))
	return false
}

// clientIP извлекает адрес клиента с учетом прокси-заголовков
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Первый адрес в списке принадлежит исходному клиенту
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

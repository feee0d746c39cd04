// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds the per-client request budget for one endpoint group.
type Config struct {
	WindowSize    time.Duration
	MaxRequests   int
	CleanupPeriod time.Duration
}

// DefaultAPIConfig suits the read endpoints (chat listing, history).
func DefaultAPIConfig() *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxRequests:   120,
		CleanupPeriod: 5 * time.Minute,
	}
}

// TurnConfig is tighter: each request here starts a generation turn,
// so bursts are expensive. The daily message quota is enforced
// separately per user; this guards against rapid-fire clients.
func TurnConfig() *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxRequests:   20,
		CleanupPeriod: 5 * time.Minute,
	}
}

type clientRecord struct {
	Count       int
	WindowStart time.Time
}

// MemoryRateLimiter implements fixed-window per-client limiting.
type MemoryRateLimiter struct {
	config  *Config
	clients map[string]*clientRecord
	mu      sync.Mutex
	stopCh  chan struct{}
}

func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:  config,
		clients: make(map[string]*clientRecord),
		stopCh:  make(chan struct{}),
	}
	go limiter.cleanupLoop()
	return limiter
}

// RateLimitInfo describes the decision for response headers.
type RateLimitInfo struct {
	Allowed    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Allow checks and consumes one request from the client's window.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	record, exists := rl.clients[identifier]
	if !exists || now.Sub(record.WindowStart) > rl.config.WindowSize {
		rl.clients[identifier] = &clientRecord{Count: 1, WindowStart: now}
		return true, &RateLimitInfo{
			Allowed:   true,
			Remaining: rl.config.MaxRequests - 1,
			ResetTime: now.Add(rl.config.WindowSize),
		}
	}

	record.Count++
	reset := record.WindowStart.Add(rl.config.WindowSize)
	if record.Count > rl.config.MaxRequests {
		return false, &RateLimitInfo{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  reset,
			RetryAfter: time.Until(reset),
		}
	}

	return true, &RateLimitInfo{
		Allowed:   true,
		Remaining: rl.config.MaxRequests - record.Count,
		ResetTime: reset,
	}
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for identifier, record := range rl.clients {
		if now.Sub(record.WindowStart) > rl.config.WindowSize {
			delete(rl.clients, identifier)
		}
	}
}

// Close stops the cleanup goroutine.
func (rl *MemoryRateLimiter) Close() {
	close(rl.stopCh)
}

// GetClientIP extracts the real client IP from a request, honoring
// proxy headers before falling back to the socket address.
func GetClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func parseFirstIP(forwarded string) string {
	ips := strings.Split(forwarded, ",")
	if len(ips) > 0 {
		return strings.TrimSpace(ips[0])
	}
	return ""
}

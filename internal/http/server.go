package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/storage"
)

type Server struct {
	http.Server
	repo         *storage.SQLiteRepository
	transactions *services.TransactionService
	materializer *services.Materializer
	rateLimiter  *rateLimiter

	// Report caches, keyed by user, invalidated on every write.
	summaryCache  *lruCache[storage.Summary]
	monthlyCache  *lruCache[[]storage.MonthTotals]
	categoryCache *lruCache[[]storage.CategoryTotal]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, repo *storage.SQLiteRepository, transactions *services.TransactionService, materializer *services.Materializer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		repo:             repo,
		transactions:     transactions,
		materializer:     materializer,
		rateLimiter:      newRateLimiter(),
		summaryCache:     newLRUCache[storage.Summary](100, 5*time.Minute),
		monthlyCache:     newLRUCache[[]storage.MonthTotals](100, 5*time.Minute),
		categoryCache:    newLRUCache[[]storage.CategoryTotal](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/api/transactions", s.withLimits(s.handleTransactions))
	mux.HandleFunc("/api/recurring", s.withLimits(s.handleRecurring))
	mux.HandleFunc("/api/recurring/run", s.withLimits(s.handleRecurringRun))
	mux.HandleFunc("/api/budgets", s.withLimits(s.handleBudgets))
	mux.HandleFunc("/api/goals", s.withLimits(s.handleGoals))
	mux.HandleFunc("/api/tags", s.withLimits(s.handleTags))
	mux.HandleFunc("/api/reports/summary", s.withLimits(s.handleSummaryReport))
	mux.HandleFunc("/api/reports/monthly", s.withLimits(s.handleMonthlyReport))
	mux.HandleFunc("/api/reports/categories", s.withLimits(s.handleCategoryReport))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      applog.RequestLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.summaryCache.CleanExpired() +
				s.monthlyCache.CleanExpired() +
				s.categoryCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateReports drops every cached report for a user after a write.
func (s *Server) invalidateReports(user string) {
	s.summaryCache.Delete(user)
	s.monthlyCache.Delete(user)
	s.categoryCache.Delete(user)
}

// withLimits applies rate limiting to mutating requests.
func (s *Server) withLimits(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

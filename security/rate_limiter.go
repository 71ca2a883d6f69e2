// ABOUTME: In-memory sliding-window rate limiter protecting the admin API
// ABOUTME: Per-client-IP hourly budget with a background cleanup routine

package security

import (
	"log/slog"
	"sync"
	"time"
)

// MemoryRateLimiter limits requests per client IP over a sliding one-hour
// window. State lives in memory; restarting the service resets all budgets.
type MemoryRateLimiter struct {
	maxRequestsPerHour int
	cleanupInterval    time.Duration

	mutex   sync.RWMutex
	clients map[string]*clientWindow

	logger *slog.Logger

	stopChan  chan struct{}
	isRunning bool
}

// clientWindow tracks one client's recent requests.
type clientWindow struct {
	requests []requestRecord
	lastSeen time.Time
}

type requestRecord struct {
	timestamp time.Time
	endpoint  string
}

// ClientStats describes one client's current budget.
type ClientStats struct {
	ClientIP           string         `json:"client_ip"`
	RequestsInLastHour int            `json:"requests_in_last_hour"`
	RemainingRequests  int            `json:"remaining_requests"`
	NextResetTime      time.Time      `json:"next_reset_time"`
	EndpointBreakdown  map[string]int `json:"endpoint_breakdown"`
}

// NewMemoryRateLimiter creates a rate limiter and starts its cleanup
// routine. Call Stop to release it.
func NewMemoryRateLimiter(maxRequestsPerHour int, logger *slog.Logger) *MemoryRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	limiter := &MemoryRateLimiter{
		maxRequestsPerHour: maxRequestsPerHour,
		cleanupInterval:    5 * time.Minute,
		clients:            make(map[string]*clientWindow),
		logger:             logger,
		stopChan:           make(chan struct{}),
	}

	limiter.isRunning = true
	go limiter.cleanupLoop()

	logger.Info("Memory rate limiter created",
		"max_requests_per_hour", maxRequestsPerHour)

	return limiter
}

// IsAllowed reports whether the client still has budget for this request.
func (rl *MemoryRateLimiter) IsAllowed(clientIP, endpoint string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	client := rl.clientLocked(clientIP, now)
	client.requests = filterSince(client.requests, now.Add(-time.Hour))

	if len(client.requests) >= rl.maxRequestsPerHour {
		rl.logger.Warn("Rate limit exceeded",
			"client_ip", clientIP,
			"endpoint", endpoint,
			"current_requests", len(client.requests),
			"limit", rl.maxRequestsPerHour)
		return false
	}

	return true
}

// RecordRequest counts one request against the client's window.
func (rl *MemoryRateLimiter) RecordRequest(clientIP, endpoint string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	client := rl.clientLocked(clientIP, now)
	client.requests = append(client.requests, requestRecord{
		timestamp: now,
		endpoint:  endpoint,
	})
}

// GetClientStats returns one client's current budget.
func (rl *MemoryRateLimiter) GetClientStats(clientIP string) ClientStats {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		return ClientStats{
			ClientIP:          clientIP,
			RemainingRequests: rl.maxRequestsPerHour,
			NextResetTime:     now.Add(time.Hour),
		}
	}

	valid := filterSince(client.requests, now.Add(-time.Hour))
	remaining := rl.maxRequestsPerHour - len(valid)
	if remaining < 0 {
		remaining = 0
	}

	nextReset := now.Add(time.Hour)
	if len(valid) > 0 {
		nextReset = valid[0].timestamp.Add(time.Hour)
	}

	breakdown := make(map[string]int)
	for _, req := range valid {
		breakdown[req.endpoint]++
	}

	return ClientStats{
		ClientIP:           clientIP,
		RequestsInLastHour: len(valid),
		RemainingRequests:  remaining,
		NextResetTime:      nextReset,
		EndpointBreakdown:  breakdown,
	}
}

// Stop halts the cleanup routine and drops all tracked state.
func (rl *MemoryRateLimiter) Stop() {
	if !rl.isRunning {
		return
	}

	close(rl.stopChan)
	rl.isRunning = false

	rl.mutex.Lock()
	rl.clients = make(map[string]*clientWindow)
	rl.mutex.Unlock()

	rl.logger.Info("Memory rate limiter stopped")
}

// clientLocked returns the window for a client, creating it if needed.
// Caller holds the lock.
func (rl *MemoryRateLimiter) clientLocked(clientIP string, now time.Time) *clientWindow {
	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientWindow{lastSeen: now}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now
	return client
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.performCleanup()
		case <-rl.stopChan:
			return
		}
	}
}

// performCleanup trims expired records and drops clients idle for over
// two hours.
func (rl *MemoryRateLimiter) performCleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	oneHourAgo := now.Add(-time.Hour)
	twoHoursAgo := now.Add(-2 * time.Hour)

	removed := 0
	for clientIP, client := range rl.clients {
		client.requests = filterSince(client.requests, oneHourAgo)
		if len(client.requests) == 0 && client.lastSeen.Before(twoHoursAgo) {
			delete(rl.clients, clientIP)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Rate limiter cleanup completed",
			"clients_removed", removed,
			"active_clients", len(rl.clients))
	}
}

func filterSince(requests []requestRecord, cutoff time.Time) []requestRecord {
	valid := requests[:0]
	for _, req := range requests {
		if req.timestamp.After(cutoff) {
			valid = append(valid, req)
		}
	}
	return valid
}

package security

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter_AllowsWithinBudget(t *testing.T) {
	limiter := NewMemoryRateLimiter(3, nil)
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.IsAllowed("10.0.0.1", "/v1/sync/refresh"))
		limiter.RecordRequest("10.0.0.1", "/v1/sync/refresh")
	}

	assert.False(t, limiter.IsAllowed("10.0.0.1", "/v1/sync/refresh"))
}

func TestMemoryRateLimiter_BudgetIsPerClient(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, nil)
	defer limiter.Stop()

	limiter.RecordRequest("10.0.0.1", "/v1/feeds")

	assert.False(t, limiter.IsAllowed("10.0.0.1", "/v1/feeds"))
	assert.True(t, limiter.IsAllowed("10.0.0.2", "/v1/feeds"))
}

func TestMemoryRateLimiter_ClientStats(t *testing.T) {
	limiter := NewMemoryRateLimiter(10, nil)
	defer limiter.Stop()

	limiter.RecordRequest("10.0.0.1", "/v1/feeds")
	limiter.RecordRequest("10.0.0.1", "/v1/feeds")
	limiter.RecordRequest("10.0.0.1", "/v1/sync/refresh")

	stats := limiter.GetClientStats("10.0.0.1")
	assert.Equal(t, 3, stats.RequestsInLastHour)
	assert.Equal(t, 7, stats.RemainingRequests)
	assert.Equal(t, 2, stats.EndpointBreakdown["/v1/feeds"])
	assert.Equal(t, 1, stats.EndpointBreakdown["/v1/sync/refresh"])

	unknown := limiter.GetClientStats("10.0.0.99")
	assert.Equal(t, 0, unknown.RequestsInLastHour)
	assert.Equal(t, 10, unknown.RemainingRequests)
}

func TestMemoryRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewMemoryRateLimiter(1000, nil)
	defer limiter.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ip := fmt.Sprintf("10.0.0.%d", n)
			for j := 0; j < 50; j++ {
				limiter.IsAllowed(ip, "/v1/feeds")
				limiter.RecordRequest(ip, "/v1/feeds")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		stats := limiter.GetClientStats(fmt.Sprintf("10.0.0.%d", i))
		assert.Equal(t, 50, stats.RequestsInLastHour)
	}
}

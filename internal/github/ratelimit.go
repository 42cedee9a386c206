package github

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	minRequestRate = 0.05 // one request every 20s
	maxRequestRate = 50
)

// newLimiter spreads perHour requests over an hour but allows them as a burst
func newLimiter(perHour int) *rate.Limiter {
	if perHour <= 0 {
		perHour = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), perHour)
}

// observeRateLimit records the X-RateLimit-* headers and adapts the limiter to
// the remaining budget.
func (c *Client) observeRateLimit(resp *http.Response) {
	limit, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	if err != nil || limit <= 0 {
		return
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}

	info := c.RateLimit()
	info.Limit = limit
	info.Remaining = remaining
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		info.Reset = time.Unix(reset, 0)
	}

	c.mu.Lock()
	c.rateLimit = info
	c.mu.Unlock()

	c.metrics.UpdateGitHubRateLimit(limit-remaining, limit)

	usage := float64(limit-remaining) / float64(limit)
	current := float64(c.rateLimiter.Limit())
	next := current

	if usage > 0.8 {
		next = current * 0.5
	} else if usage < 0.3 {
		next = current * 1.2
	}

	if next < minRequestRate {
		next = minRequestRate
	} else if next > maxRequestRate {
		next = maxRequestRate
	}

	c.rateLimiter.SetLimit(rate.Limit(next))
}

package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitInfo holds information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
	// SecondaryLimitReset is derived from Retry-After
	SecondaryLimitReset time.Time
	// Known is false until the first response carrying rate-limit headers
	Known bool
}

// Exhausted reports whether no request may be issued before the given time
func (i RateLimitInfo) Exhausted(now time.Time) (bool, time.Time) {
	if !i.SecondaryLimitReset.IsZero() && now.Before(i.SecondaryLimitReset) {
		return true, i.SecondaryLimitReset
	}
	if i.Known && i.Remaining <= 0 && now.Before(i.ResetTime) {
		return true, i.ResetTime
	}
	return false, time.Time{}
}

// quotaTracker is the rate-limit state shared by every caller of a Client
type quotaTracker struct {
	mu   sync.Mutex
	info RateLimitInfo
}

func (q *quotaTracker) snapshot() RateLimitInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.info
}

// hasRateLimitSignal reports whether a 403/429 response is a quota rejection
// rather than a permissions problem.
func hasRateLimitSignal(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

// update folds the rate-limit headers of a response into the shared state.
// Responses can complete out of order, so within one reset window the lowest
// remaining count wins.
func (q *quotaTracker) update(h http.Header, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	remainingHeader := h.Get("X-RateLimit-Remaining")
	if remainingHeader != "" {
		remaining, err := strconv.Atoi(remainingHeader)
		if err == nil {
			var reset time.Time
			if v, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
				reset = time.Unix(v, 0)
			}
			sameWindow := q.info.Known && reset.Equal(q.info.ResetTime)
			if !sameWindow || remaining < q.info.Remaining {
				q.info.Remaining = remaining
			}
			q.info.ResetTime = reset
			q.info.Known = true
		}
	}
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		q.info.Limit = limit
	}

	if retryAfter := h.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
			q.info.SecondaryLimitReset = now.Add(time.Duration(seconds) * time.Second)
		}
	}
}

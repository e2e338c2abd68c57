package reversecrawler

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter enforces request_delay_ms politeness between probes to the
// same host. It is distinct from the Fetcher's own per-host cap/delay --
// this one paces the Reverse Crawler's own probing loop before a request
// ever reaches the Fetcher, since a reverse-crawl run can generate many
// more candidate URLs per host than an ordinary Fetcher caller would.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	delay    rate.Limit
}

func newHostLimiter(requestDelay rate.Limit) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    requestDelay,
	}
}

// Wait blocks until rawURL's host may be probed again, or ctx is done.
func (h *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(h.delay, 1)
		h.limiters[host] = lim
	}
	h.mu.Unlock()
	return lim.Wait(ctx)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests per host so that the public OSM
// services see at most the configured request rate from one process.
type Limiter struct {
	mu       sync.Mutex
	perHost  map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	disabled bool
}

// NewLimiter creates a limiter allowing requestsPerSecond per host.
// A non-positive rate disables pacing entirely.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		perHost:  make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		disabled: requestsPerSecond <= 0,
	}
}

// Wait blocks until a request to rawURL may be sent
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.disabled {
		return nil
	}

	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	return l.forHost(host).Wait(ctx)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.perHost[host]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.perHost[host] = lim
	}
	return lim
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return parsed.Host, nil
}

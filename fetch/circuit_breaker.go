package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// tripThreshold is the number of consecutive failures that opens a breaker.
const tripThreshold = 5

// ArtifactFetcher fetches a resolved release archive. Download prefers it
// over a plain URL fetch when the fetcher implements it.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, info *ArtifactInfo) (*Artifact, error)
}

// CircuitBreakerFetcher guards downloads with one breaker per download host.
// Rainmeas packages link their archives from wherever the author publishes
// them (GitHub releases, personal sites), so an outage of one host only
// blocks the packages hosted there.
type CircuitBreakerFetcher struct {
	fetcher  FetcherInterface
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewCircuitBreakerFetcher creates a new circuit breaker wrapper for a fetcher.
func NewCircuitBreakerFetcher(f FetcherInterface) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger used to report open breakers.
func (cbf *CircuitBreakerFetcher) WithLogger(l *slog.Logger) *CircuitBreakerFetcher {
	cbf.logger = l
	return cbf
}

func newHostBreaker() *circuit.Breaker {
	reopen := backoff.NewExponentialBackOff()
	reopen.InitialInterval = 30 * time.Second
	reopen.MaxInterval = 5 * time.Minute
	reopen.Multiplier = 2.0
	reopen.Reset()

	return circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    reopen,
		ShouldTrip: circuit.ThresholdTripFunc(tripThreshold),
	})
}

func (cbf *CircuitBreakerFetcher) hostBreaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	b, ok := cbf.breakers[host]
	cbf.mu.RUnlock()
	if ok {
		return b
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()
	if b, ok := cbf.breakers[host]; ok {
		return b
	}
	b = newHostBreaker()
	cbf.breakers[host] = b
	return b
}

// call runs fn under host's breaker. attrs describe the request in the log
// line written when the breaker opens.
func (cbf *CircuitBreakerFetcher) call(host string, fn func() error, attrs ...any) error {
	b := cbf.hostBreaker(host)
	if !b.Ready() {
		return fmt.Errorf("download host %s unavailable: %w", host, ErrUpstreamDown)
	}

	err := b.Call(fn, 0)
	if err != nil && b.Tripped() {
		cbf.logger.Warn("download host unavailable, pausing requests",
			append([]any{"host", host, "error", err}, attrs...)...)
	}
	return err
}

// FetchArtifact downloads a resolved release under the breaker of its
// download host.
func (cbf *CircuitBreakerFetcher) FetchArtifact(ctx context.Context, info *ArtifactInfo) (*Artifact, error) {
	host := info.Host
	if host == "" {
		host = downloadHost(info.URL)
	}

	var artifact *Artifact
	err := cbf.call(host, func() error {
		var err error
		artifact, err = cbf.fetcher.Fetch(ctx, info.URL)
		return err
	}, "package", info.Name, "version", info.Version)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Fetch downloads url under the breaker of its host.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, url string) (*Artifact, error) {
	var artifact *Artifact
	err := cbf.call(downloadHost(url), func() error {
		var err error
		artifact, err = cbf.fetcher.Fetch(ctx, url)
		return err
	}, "url", url)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Head checks url under the breaker of its host.
func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, url string) (size int64, contentType string, err error) {
	err = cbf.call(downloadHost(url), func() error {
		var err error
		size, contentType, err = cbf.fetcher.Head(ctx, url)
		return err
	}, "url", url)
	return size, contentType, err
}

// BreakerStates returns "open" or "closed" per download host seen so far.
func (cbf *CircuitBreakerFetcher) BreakerStates() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string, len(cbf.breakers))
	for host, b := range cbf.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

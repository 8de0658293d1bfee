package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// FlowState is one step of a resolution request's lifecycle.
type FlowState int

const (
	StateResolving FlowState = iota
	StateFound
	StateNotFound
	StateEnriching
	StateReady
	StateRedirected
	StateCancelled
)

func (s FlowState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	case StateEnriching:
		return "enriching"
	case StateReady:
		return "ready"
	case StateRedirected:
		return "redirected"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DefaultCountdownTicks is how many ticks a ready flow counts down
// before redirecting on its own.
const DefaultCountdownTicks = 5

var errFlowDone = errors.New("resolution flow already finished")

// Resolver orchestrates the user-facing redirect: resolve the code,
// dispatch click ingestion without awaiting it, and hand back a flow
// that counts down to the redirect.
type Resolver struct {
	registry *Registry
	ingest   *Ingestor
}

func NewResolver(registry *Registry, ingest *Ingestor) *Resolver {
	return &Resolver{registry: registry, ingest: ingest}
}

// Start resolves the code and returns a ready flow. On an unknown code
// the flow is terminal in StateNotFound and the error is ErrNotFound.
// Click ingestion runs in the background; its outcome never reaches the
// flow, which computes its destination locally.
func (r *Resolver) Start(ctx context.Context, code string, sig ClientSignal) (*Flow, error) {
	flow := &Flow{state: StateResolving, remaining: DefaultCountdownTicks}

	resolved, err := r.registry.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			flow.state = StateNotFound
			return flow, ErrNotFound
		}
		return nil, err
	}
	flow.state = StateFound

	// Re-normalize here even though create already did: the redirect
	// must hold up even for records written before normalization.
	flow.dest = NormalizeDestination(resolved.OriginalURL)

	flow.state = StateEnriching
	go r.ingest.Record(context.WithoutCancel(ctx), resolved.ID, resolved.OriginalURL, sig)
	flow.state = StateReady

	return flow, nil
}

// Flow is the per-request redirect state machine:
// Resolving -> {Found, NotFound}; Found -> Enriching -> Ready ->
// (Redirected | Cancelled). Safe for concurrent use.
type Flow struct {
	mu        sync.Mutex
	state     FlowState
	dest      string
	remaining int
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Destination is the normalized URL the flow will redirect to.
func (f *Flow) Destination() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dest
}

// Remaining is the number of countdown ticks left before redirect.
func (f *Flow) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remaining
}

// Tick advances the countdown by one unit. Reaching zero transitions to
// Redirected. Ticks in any other state are no-ops.
func (f *Flow) Tick() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady {
		return f.state
	}
	f.remaining--
	if f.remaining <= 0 {
		f.state = StateRedirected
	}
	return f.state
}

// Proceed redirects immediately, short-circuiting the countdown.
func (f *Flow) Proceed() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady {
		return "", fmt.Errorf("%w: state %s", errFlowDone, f.state)
	}
	f.state = StateRedirected
	return f.dest, nil
}

// Cancel abandons the flow. Allowed any time before Redirected.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRedirected {
		return fmt.Errorf("%w: already redirected", errFlowDone)
	}
	f.state = StateCancelled
	return nil
}

// Run drives the countdown on a real ticker and blocks until the flow
// redirects, is cancelled, or ctx expires. It returns the destination
// on redirect.
func (f *Flow) Run(ctx context.Context, interval time.Duration) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			switch f.Tick() {
			case StateRedirected:
				return f.Destination(), nil
			case StateCancelled:
				return "", errFlowDone
			}
		}
	}
}

// NormalizeDestination guarantees an explicit scheme, defaulting to
// https. Pure and infallible: bad input comes back unchanged beyond the
// scheme prefix.
func NormalizeDestination(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// NormalizeURL is the validating variant used on create: the normalized
// URL must parse and carry a host.
func NormalizeURL(raw string) (string, error) {
	normalized := NormalizeDestination(raw)
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: not a valid url", ErrInvalidInput)
	}
	return normalized, nil
}

// package flows tracks in-flight OAuth login attempts.
//
// Every login starts by minting an unpredictable state token that is carried
// through the authorization redirect round-trip. The callback must present the
// same token, and each token is redeemable exactly once within its TTL, so a
// stale, replayed, or forged callback can never be matched to a live flow.
package flows

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/crowdmix/internal/shared"
)

// Status describes where a login flow is in its lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusExpired
)

// Flow is one in-flight login attempt, keyed by its state token.
type Flow struct {
	State     string
	CreatedAt time.Time
	Status    Status
}

// Registry issues and redeems login state tokens.
//
// All mutation happens under one mutex; Complete's check-and-transition is
// atomic, so exactly one of two concurrent callbacks presenting the same
// token wins.
type Registry struct {
	mu    sync.Mutex
	flows map[string]*Flow
	ttl   time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewRegistry creates a Registry whose flows expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		flows: make(map[string]*Flow),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Begin mints a new state token and records a pending flow for it.
//
// The token is 32 bytes of crypto/rand, base64 URL-encoded, suitable for use
// as the OAuth state parameter.
func (r *Registry) Begin() (string, error) {
	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()
	r.flows[state] = &Flow{State: state, CreatedAt: r.now(), Status: StatusPending}
	return state, nil
}

// Complete redeems a state token presented by a callback.
//
// Returns [shared.ErrUnknownLogin] if no flow matches, [shared.ErrLoginUsed]
// if the flow already left the pending state, and [shared.ErrLoginExpired]
// if the flow outlived the TTL. On success the flow transitions to completed
// and can never be redeemed again.
func (r *Registry) Complete(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()

	flow, ok := r.flows[state]
	if !ok {
		return shared.ErrUnknownLogin
	}
	switch flow.Status {
	case StatusCompleted:
		return shared.ErrLoginUsed
	case StatusExpired:
		return shared.ErrLoginExpired
	}
	if r.now().Sub(flow.CreatedAt) > r.ttl {
		flow.Status = StatusExpired
		return shared.ErrLoginExpired
	}

	flow.Status = StatusCompleted
	return nil
}

// Pending reports how many flows are currently redeemable. Used by the
// health endpoint.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, flow := range r.flows {
		if flow.Status == StatusPending && r.now().Sub(flow.CreatedAt) <= r.ttl {
			n++
		}
	}
	return n
}

// sweep drops terminal and expired flows to bound memory. Callers must hold mu.
//
// Completed flows are retained for one TTL window so a replayed callback gets
// the more useful "already completed" error instead of "unknown".
func (r *Registry) sweep() {
	now := r.now()
	for state, flow := range r.flows {
		age := now.Sub(flow.CreatedAt)
		switch flow.Status {
		case StatusPending:
			if age > r.ttl {
				flow.Status = StatusExpired
			}
		case StatusCompleted, StatusExpired:
			if age > 2*r.ttl {
				delete(r.flows, state)
			}
		}
	}
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

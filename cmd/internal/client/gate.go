package client

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds one refresh round trip.
const DefaultRefreshTimeout = 10 * time.Second

// RefreshGate runs at most one refresh at a time and fans its result out to
// every caller that arrives while it is in flight.
type RefreshGate struct {
	group   singleflight.Group
	timeout time.Duration
}

// NewRefreshGate returns a gate whose refresh calls are bounded by timeout
// (DefaultRefreshTimeout when <= 0).
func NewRefreshGate(timeout time.Duration) *RefreshGate {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshGate{timeout: timeout}
}

// Do runs fn unless a refresh is already in flight, in which case it waits for that one.
// fn gets a context detached from the caller's cancellation so one impatient
// caller cannot fail the refresh for the others; it is still bounded by the gate timeout.
// A caller whose ctx ends stops waiting and gets ctx.Err().
func (g *RefreshGate) Do(ctx context.Context, fn func(ctx context.Context) (Session, error)) (Session, error) {
	ch := g.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return fn(rctx)
	})

	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil
	}
}

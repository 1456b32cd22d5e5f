// Package application wires the entitlement engine: the transaction observer
// state machine, restore orchestration, the subscription writer, and the
// catalog service.
package application

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// ErrSuperseded is delivered to a caller whose purchase or restore was
// replaced by a newer operation before it resolved.
var ErrSuperseded = errors.New("operation superseded by a newer purchase or restore")

// Result is the outcome of a purchase or restore operation. A nil Err with
// PeriodNone means "nothing to restore", which is a valid success.
type Result struct {
	Period domain.Period
	Err    error
}

// Pending is one caller's handle on an in-flight operation.
type Pending struct {
	token uuid.UUID
	ch    chan Result
}

// Token returns the correlation token for this operation.
func (p *Pending) Token() uuid.UUID { return p.token }

// Wait blocks until the operation resolves or the context ends.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-p.ch:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// CompletionRegistry tracks the single active purchase-or-restore operation.
// Each operation gets its own correlation token and result future; beginning
// a new operation resolves the previous future with ErrSuperseded instead of
// silently dropping it.
type CompletionRegistry struct {
	mu     sync.Mutex
	active *Pending
}

// NewCompletionRegistry creates an empty registry.
func NewCompletionRegistry() *CompletionRegistry {
	return &CompletionRegistry{}
}

// Begin registers a new operation and returns its handle. Any previous
// unresolved operation is failed with ErrSuperseded.
func (r *CompletionRegistry) Begin() *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.active.ch <- Result{Err: ErrSuperseded}
	}

	pending := &Pending{
		token: uuid.New(),
		ch:    make(chan Result, 1),
	}
	r.active = pending
	return pending
}

// Resolve delivers the result to the active operation and clears it. Returns
// false when no operation was pending.
func (r *CompletionRegistry) Resolve(res Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return false
	}
	r.active.ch <- res
	r.active = nil
	return true
}

// HasPending reports whether an operation is awaiting a result.
func (r *CompletionRegistry) HasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

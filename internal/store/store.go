// Package store holds view state fetched through the domain services and
// notifies subscribers whenever that state changes.
//
// Store actions never return service errors. A failure is logged, recorded
// in the store's error text and reported as a false/nil result.
package store

import (
	"sync"

	"go.uber.org/zap"

	"projectdesk/internal/events"
	"projectdesk/internal/logging"
)

// User-facing error texts.
const (
	ErrConnectionFailed = "Connection failed"
	ErrLoadProject      = "Failed to load project"
	ErrProjectNotFound  = "Project not found"
)

// Options are shared by every store constructor.
type Options struct {
	Log *zap.Logger
	// Bus receives change events; stores sharing a bus share subscribers.
	Bus *events.Bus
}

type base struct {
	name string
	log  *zap.Logger
	bus  *events.Bus
	mu   sync.RWMutex
}

func newBase(name string, opts Options) base {
	bus := opts.Bus
	if bus == nil {
		bus = &events.Bus{}
	}
	return base{name: name, log: logging.OrNop(opts.Log).Named(name), bus: bus}
}

// Subscribe registers fn for this store's change events.
func (b *base) Subscribe(fn events.Handler) (unsubscribe func()) {
	name := b.name
	return b.bus.Subscribe(func(e events.Event) {
		if e.Store == name {
			fn(e)
		}
	})
}

// publish must be called without holding b.mu.
func (b *base) publish(evtType string, entityID int64, payload events.EventPayload) {
	b.bus.Append(evtType, b.name, entityID, payload)
}

func (b *base) warn(op string, id int64, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if id != 0 {
		fields = append(fields, zap.Int64("id", id))
	}
	b.log.Warn("service call failed", fields...)
}

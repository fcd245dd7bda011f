// Package analytics dispatches fire-and-forget optimization completion
// events. Delivery is best-effort: failures are logged and discarded,
// never surfaced to the request path.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

const dispatchTimeout = 5 * time.Second

// Dispatcher sends events to the sink asynchronously, detached from
// the request that produced them.
type Dispatcher struct {
	sink   catalog.AnalyticsSink
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given sink.
func NewDispatcher(sink catalog.AnalyticsSink) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		logger: log.With().Str("component", "analytics").Logger(),
	}
}

// Dispatch delivers the event on its own goroutine with its own
// timeout; the caller's context and control path are never affected.
func (d *Dispatcher) Dispatch(event catalog.AnalyticsEvent) {
	if d == nil || d.sink == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.sink.RecordOptimization(ctx, event); err != nil {
			d.logger.Warn().Err(err).Str("trip_id", event.TripID).Msg("analytics event dropped")
		}
	}()
}

// Wait blocks until all in-flight dispatches finish. Used on shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patricknguyendev/simplygrocery/internal/catalog"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) RecordOptimization(_ context.Context, _ catalog.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("sink unavailable")
}

func TestDispatchDeliversEvents(t *testing.T) {
	mem := catalog.NewMemory()
	d := NewDispatcher(mem)

	d.Dispatch(catalog.AnalyticsEvent{TripID: "trip_a", ItemCount: 3, SelectedStrategy: "ALL"})
	d.Dispatch(catalog.AnalyticsEvent{TripID: "trip_b", ItemCount: 1, SelectedStrategy: "CHEAPEST"})
	d.Wait()

	events := mem.Events()
	require.Len(t, events, 2)
	ids := map[string]bool{events[0].TripID: true, events[1].TripID: true}
	assert.True(t, ids["trip_a"])
	assert.True(t, ids["trip_b"])
}

func TestDispatchSwallowsSinkErrors(t *testing.T) {
	sink := &failingSink{}
	d := NewDispatcher(sink)

	// Must not panic or surface anything.
	d.Dispatch(catalog.AnalyticsEvent{TripID: "trip_c"})
	d.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.calls)
}

func TestDispatchNilSinkIsNoop(t *testing.T) {
	d := NewDispatcher(nil)
	d.Dispatch(catalog.AnalyticsEvent{TripID: "trip_d"})
	d.Wait()
}

package scrape

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type gaugedRunner struct {
	active  int32
	maxSeen int32
	fail    map[string]error
	offers  map[string][]Offer
}

func (r *gaugedRunner) Run(_ context.Context, site Site) ([]Offer, error) {
	current := atomic.AddInt32(&r.active, 1)
	for {
		seen := atomic.LoadInt32(&r.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt32(&r.maxSeen, seen, current) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&r.active, -1)

	if err, ok := r.fail[site.Name]; ok {
		return r.offers[site.Name], err
	}
	return r.offers[site.Name], nil
}

type recordingWriter struct {
	mu     sync.Mutex
	writes map[string][]Offer
	fail   map[string]error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		writes: make(map[string][]Offer),
		fail:   make(map[string]error),
	}
}

func (w *recordingWriter) WriteSnapshot(_ context.Context, site string, _ time.Time, offers []Offer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.fail[site]; ok {
		return err
	}
	w.writes[site] = offers
	return nil
}

func (w *recordingWriter) written() map[string][]Offer {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string][]Offer, len(w.writes))
	for k, v := range w.writes {
		out[k] = v
	}
	return out
}

func TestOrchestratorBoundsFanOutToTwo(t *testing.T) {
	t.Parallel()

	sites := []Site{
		{Name: "one"}, {Name: "two"}, {Name: "three"}, {Name: "four"}, {Name: "five"},
	}
	runner := &gaugedRunner{}
	writer := newRecordingWriter()
	clock := newFakeClock(time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC))

	orch := NewOrchestrator(runner, writer, clock, zap.NewNop(), false)
	orch.Run(context.Background(), sites)

	require.LessOrEqual(t, atomic.LoadInt32(&runner.maxSeen), int32(2))
	require.Len(t, writer.written(), 5)
}

func TestOrchestratorIsolatesFailures(t *testing.T) {
	t.Parallel()

	sites := []Site{{Name: "broken"}, {Name: "healthy"}, {Name: "late"}}
	runner := &gaugedRunner{
		fail: map[string]error{
			"broken": errors.New("load budget exceeded"),
		},
		offers: map[string][]Offer{
			"broken":  {{ID: "partial-1", Title: "Partial", URL: "https://x/1"}},
			"healthy": {{ID: "h-1", Title: "Healthy", URL: "https://x/2"}},
		},
	}
	writer := newRecordingWriter()
	clock := newFakeClock(time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC))

	orch := NewOrchestrator(runner, writer, clock, zap.NewNop(), false)
	orch.Run(context.Background(), sites)

	written := writer.written()
	require.Len(t, written, 3)
	// Partial results from the failing site are still persisted.
	require.Len(t, written["broken"], 1)
	require.Equal(t, "partial-1", written["broken"][0].ID)
}

type panickyRunner struct {
	panicSite string
	offers    map[string][]Offer
}

func (r *panickyRunner) Run(_ context.Context, site Site) ([]Offer, error) {
	if site.Name == r.panicSite {
		panic("selector engine blew up")
	}
	return r.offers[site.Name], nil
}

func TestOrchestratorRecoversFromPanickingCrawl(t *testing.T) {
	t.Parallel()

	sites := []Site{{Name: "exploding"}, {Name: "healthy"}, {Name: "late"}}
	runner := &panickyRunner{
		panicSite: "exploding",
		offers: map[string][]Offer{
			"healthy": {{ID: "h-1", Title: "Healthy", URL: "https://x/1"}},
			"late":    {{ID: "l-1", Title: "Late", URL: "https://x/2"}},
		},
	}
	writer := newRecordingWriter()
	clock := newFakeClock(time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC))

	orch := NewOrchestrator(runner, writer, clock, zap.NewNop(), false)
	orch.Run(context.Background(), sites)

	written := writer.written()
	require.Len(t, written, 3)
	require.Empty(t, written["exploding"])
	require.Len(t, written["healthy"], 1)
	require.Len(t, written["late"], 1)
}

func TestOrchestratorSnapshotErrorDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	sites := []Site{{Name: "bad-sink"}, {Name: "good"}}
	runner := &gaugedRunner{
		offers: map[string][]Offer{
			"bad-sink": {{ID: "b-1"}},
			"good":     {{ID: "g-1"}},
		},
	}
	writer := newRecordingWriter()
	writer.fail["bad-sink"] = errors.New("disk full")
	clock := newFakeClock(time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC))

	orch := NewOrchestrator(runner, writer, clock, zap.NewNop(), true)
	orch.Run(context.Background(), sites)

	written := writer.written()
	require.Len(t, written, 1)
	require.Contains(t, written, "good")
}

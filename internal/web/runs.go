package web

import (
	"sync"
	"time"

	"github.com/nevindra/medcopy"
)

// run is one batch held in memory. Progress is written by the orchestrator
// callback and read by HTTP handlers; records appear once the batch finishes.
type run struct {
	id      string
	created time.Time

	mu       sync.Mutex
	progress medcopy.Progress
	records  []medcopy.Record
	finished time.Time
	subs     map[chan struct{}]struct{}
	done     chan struct{}
}

func newRun(id string, total int) *run {
	return &run{
		id:       id,
		created:  time.Now(),
		progress: medcopy.Progress{Total: total},
		subs:     make(map[chan struct{}]struct{}),
		done:     make(chan struct{}),
	}
}

// update stores a progress snapshot and wakes subscribers. Wake-ups coalesce:
// a slow subscriber sees the latest snapshot, never a stale one.
func (r *run) update(p medcopy.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = p
	for ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// finish stores the records and marks the run complete.
func (r *run) finish(records []medcopy.Record) {
	r.mu.Lock()
	r.records = records
	r.finished = time.Now()
	r.mu.Unlock()
	close(r.done)
}

// subscribe returns a channel signalled on every progress change and a
// function that releases it.
func (r *run) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	return ch, func() {
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
	}
}

// snapshot returns the current progress, the records (nil while running)
// and whether the run has finished.
func (r *run) snapshot() (medcopy.Progress, []medcopy.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress, r.records, !r.finished.IsZero()
}

// registry keeps the most recent runs. When it grows past max, the oldest
// finished runs are dropped; running batches are never evicted.
type registry struct {
	mu    sync.Mutex
	max   int
	order []string
	runs  map[string]*run
}

func newRegistry(max int) *registry {
	if max <= 0 {
		max = DefaultMaxRuns
	}
	return &registry{max: max, runs: make(map[string]*run)}
}

func (g *registry) add(r *run) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs[r.id] = r
	g.order = append(g.order, r.id)
	g.evictLocked()
}

func (g *registry) get(id string) (*run, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.runs[id]
	return r, ok
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runs)
}

func (g *registry) evictLocked() {
	excess := len(g.order) - g.max
	if excess <= 0 {
		return
	}
	kept := g.order[:0]
	for _, id := range g.order {
		if excess > 0 {
			if _, _, finished := g.runs[id].snapshot(); finished {
				delete(g.runs, id)
				excess--
				continue
			}
		}
		kept = append(kept, id)
	}
	g.order = kept
}

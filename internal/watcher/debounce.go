package watcher

import (
	"sort"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period used when a target sets none.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces events into batches. A batch is delivered once no
// event has arrived for the delay; repeated events for one path merge
// their operations.
type Debouncer struct {
	delay time.Duration
	flush func([]Event)

	mu      sync.Mutex
	pending map[string]Event
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer delivering batches to flush, which is
// called on a timer goroutine with events sorted by path.
func NewDebouncer(delay time.Duration, flush func([]Event)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		delay:   delay,
		flush:   flush,
		pending: make(map[string]Event),
	}
}

// Add queues event and restarts the quiet period.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[event.Path]; ok {
		event.Op |= p.Op
	}
	d.pending[event.Path] = event

	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

// Flush delivers pending events immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Stop discards pending events; later events are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	clear(d.pending)
}

// Pending returns the number of queued paths.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	clear(d.pending)
	d.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.flush(batch)
}

package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and coalescing.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops a notification instead of blocking the caller when the buffer
	// is full. KindSessionEnded bypasses the buffer.
	DropIfFull bool
	// CoalesceWindow suppresses a server or network notification whose kind and
	// message were already emitted within the window. Zero disables coalescing.
	CoalesceWindow time.Duration
}

type coalesceKey struct {
	kind    Kind
	message string
}

// Dispatcher forwards notifications to a sink from a single goroutine, so a slow sink
// never delays a request.
//
// When connectivity drops, every in-flight request fails with the same network error;
// coalescing turns that burst into one notification per window. Session-ended
// notifications travel in a separate one-slot channel so an error burst cannot crowd
// them out; while one is undelivered, further ones are coalesced into it.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	ch    chan Notification
	ended chan Notification
	done  chan struct{}
	wg    sync.WaitGroup
	now   func() time.Time

	mu       sync.Mutex
	lastSent map[coalesceKey]time.Time

	dropped   [kindSlots]atomic.Uint64
	coalesced atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

const kindSlots = 5

func kindSlot(k Kind) int {
	switch k {
	case KindClientError:
		return 0
	case KindServerError:
		return 1
	case KindNetworkError:
		return 2
	case KindSessionEnded:
		return 3
	default:
		return 4
	}
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled; a nil
// *Dispatcher accepts and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		ch:       make(chan Notification, cfg.BufferSize),
		ended:    make(chan Notification, 1),
		done:     make(chan struct{}),
		now:      time.Now,
		lastSent: make(map[coalesceKey]time.Time),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ended:
			d.sink.Notify(context.Background(), n)
		case n := <-d.ch:
			d.sink.Notify(context.Background(), n)
		case <-d.done:
			for {
				select {
				case n := <-d.ended:
					d.sink.Notify(context.Background(), n)
				case n := <-d.ch:
					d.sink.Notify(context.Background(), n)
				default:
					return
				}
			}
		}
	}
}

// Emit queues n for delivery. A missing timestamp is filled in.
func (d *Dispatcher) Emit(ctx context.Context, n Notification) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = d.now()
	}

	if n.Kind == KindSessionEnded {
		select {
		case d.ended <- n:
		default:
			d.coalesced.Add(1)
		}
		return
	}

	if d.suppress(n) {
		d.coalesced.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
		case <-d.done:
		default:
			d.dropped[kindSlot(n.Kind)].Add(1)
		}
		return
	}

	select {
	case d.ch <- n:
	case <-ctx.Done():
		d.dropped[kindSlot(n.Kind)].Add(1)
	case <-d.done:
	}
}

// suppress reports whether n repeats a server or network notification emitted within
// the window, and records n otherwise. Client errors describe one request and are
// never suppressed.
func (d *Dispatcher) suppress(n Notification) bool {
	if d.cfg.CoalesceWindow <= 0 {
		return false
	}
	if n.Kind != KindServerError && n.Kind != KindNetworkError {
		return false
	}

	key := coalesceKey{kind: n.Kind, message: n.Message}
	at := n.Timestamp

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSent[key]; ok && at.Sub(last) < d.cfg.CoalesceWindow {
		return true
	}
	d.lastSent[key] = at

	// Server messages come from response bodies; keep the map from growing with them.
	if len(d.lastSent) > 64 {
		for k, last := range d.lastSent {
			if at.Sub(last) >= d.cfg.CoalesceWindow {
				delete(d.lastSent, k)
			}
		}
	}
	return false
}

// Close stops accepting notifications and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the total number of notifications lost to a full buffer or an
// ended caller context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	var total uint64
	for i := range d.dropped {
		total += d.dropped[i].Load()
	}
	return total
}

// DroppedKind returns the number of dropped notifications of kind k.
func (d *Dispatcher) DroppedKind(k Kind) uint64 {
	if d == nil {
		return 0
	}
	return d.dropped[kindSlot(k)].Load()
}

// Coalesced returns the number of notifications suppressed as repeats.
func (d *Dispatcher) Coalesced() uint64 {
	if d == nil {
		return 0
	}
	return d.coalesced.Load()
}

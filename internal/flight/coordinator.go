package flight

import "sync"

// State is the refresh state of a [Coordinator].
type State uint8

const (
	// StateIdle means no refresh is in flight.
	StateIdle State = iota
	// StateRefreshing means one refresh call is in flight and new waiters join it.
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// Outcome is delivered to every waiter of a refresh cycle: either the new access
// token or the error that ended the session.
type Outcome struct {
	AccessToken string
	Err         error
}

// Waiter is a queued caller. It is released exactly once.
type Waiter struct {
	id string
	ch chan Outcome
}

// ID returns the identifier the waiter was enqueued with.
func (w *Waiter) ID() string { return w.id }

// Done delivers the outcome. The channel is buffered; it receives exactly one value
// unless the waiter was cancelled first.
func (w *Waiter) Done() <-chan Outcome { return w.ch }

// Coordinator owns the refresh state and the pending queue. The zero value is not
// usable; call [New].
type Coordinator struct {
	mu      sync.Mutex
	state   State
	queue  []*Waiter
	cycles uint64
}

// New returns an idle coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Enqueue registers a caller whose request was rejected.
//
// Deciding "is a refresh in flight" and appending to the queue happen in one critical
// section. The first caller observed while idle becomes the leader (leader == true)
// and must start the refresh and later call [Coordinator.Resolve]. Callers arriving
// while a refresh is in flight join the same queue.
func (c *Coordinator) Enqueue(id string) (w *Waiter, leader bool) {
	w = &Waiter{id: id, ch: make(chan Outcome, 1)}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = append(c.queue, w)
	if c.state == StateRefreshing {
		return w, false
	}
	c.state = StateRefreshing
	c.cycles++
	return w, true
}

// Resolve ends the current cycle: the queue is detached and cleared, the state
// returns to idle, and every waiter is released with o in enqueue order.
// It returns the number of waiters released.
func (c *Coordinator) Resolve(o Outcome) int {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.state = StateIdle
	c.mu.Unlock()

	for _, w := range queue {
		w.ch <- o
	}
	return len(queue)
}

// Cancel removes w from the queue if it has not been released yet. It reports
// whether w was removed; false means the waiter was already released (or never
// queued) and cancellation is a no-op.
func (c *Coordinator) Cancel(w *Waiter) bool {
	if w == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, queued := range c.queue {
		if queued == w {
			copy(c.queue[i:], c.queue[i+1:])
			c.queue[len(c.queue)-1] = nil
			c.queue = c.queue[:len(c.queue)-1]
			return true
		}
	}
	return false
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of queued waiters.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Cycles returns how many refresh cycles have been started.
func (c *Coordinator) Cycles() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

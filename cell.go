package goSession

import "sync"

// stateCell holds the current State and fans every change out to subscribers.
// Each subscriber channel is bounded; when it is full the oldest queued state is
// dropped so the most recent one is always delivered.
type stateCell struct {
	mu     sync.Mutex
	state  State
	subs   map[uint64]chan State
	nextID uint64
	closed bool
}

func newStateCell() *stateCell {
	return &stateCell{
		state: State{Status: StatusUninitialized},
		subs:  make(map[uint64]chan State),
	}
}

func (c *stateCell) load() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneState(c.state)
}

// set replaces the state and publishes it when it differs from the current one.
// It reports whether a change was published.
func (c *stateCell) set(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sameState(c.state, next) {
		return false
	}
	c.state = cloneState(next)
	if c.closed {
		return true
	}
	for _, ch := range c.subs {
		deliverLatest(ch, cloneState(next))
	}
	return true
}

func (c *stateCell) subscribe(buffer int) (<-chan State, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- cloneState(c.state)
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (c *stateCell) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// deliverLatest must only be called with the cell lock held; the lock makes it
// the sole sender on ch.
func deliverLatest(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func cloneState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func sameState(a, b State) bool {
	if a.Status != b.Status {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == nil && b.User == nil
	}
	return *a.User == *b.User
}

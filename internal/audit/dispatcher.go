package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls buffering. With DropIfFull unset, Emit waits for queue space
// until the caller's context ends or the dispatcher closes.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher moves session events off the caller's goroutine and hands them to
// one Sink in emission order.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	stop  chan struct{}
	idle  sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64

	closing atomic.Bool
	once    sync.Once
}

// NewDispatcher starts delivery. A disabled cfg yields nil, and a nil
// *Dispatcher discards everything.
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
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.idle.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.idle.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver isolates the loop from a misbehaving sink.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. It never blocks once Close has started.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close rejects new events, delivers what is queued and waits for the loop.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.idle.Wait()
	})
}

// Dropped counts events lost to a full buffer or an expired emit context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// SinkPanics counts events whose delivery panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panicked.Load()
}

package signal

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatcherConfig controls dispatcher buffering behavior.
type DispatcherConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards signals to a Sink so that slow sinks never hold
// up [Bus.Publish].
type Dispatcher struct {
	cfg       DispatcherConfig
	sink      Sink
	ch        chan Signal
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled; a nil
// Dispatcher is safe to use and discards everything.
func NewDispatcher(cfg DispatcherConfig, sink Sink) *Dispatcher {
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
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Signal, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case sig := <-d.ch:
			d.sink.Emit(context.Background(), sig)
		case <-d.done:
			for {
				select {
				case sig := <-d.ch:
					d.sink.Emit(context.Background(), sig)
				default:
					return
				}
			}
		}
	}
}

// Emit queues sig. With DropIfFull a full buffer drops the signal and counts it;
// otherwise Emit waits for room, ctx cancellation, or Close.
func (d *Dispatcher) Emit(ctx context.Context, sig Signal) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- sig:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- sig:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Attach subscribes the dispatcher to every signal on bus.
func (d *Dispatcher) Attach(bus *Bus) *Subscription {
	if d == nil || bus == nil {
		return nil
	}
	return bus.SubscribeAll(d.Emit)
}

// Close stops accepting signals and drains the queue into the sink.
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

// Dropped returns the number of signals dropped because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

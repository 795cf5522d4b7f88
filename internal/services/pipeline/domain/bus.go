package domain

import (
	"sync"
	"sync/atomic"
)

// Bus is the bounded event queue between the pipeline and one streaming
// client. Emit never blocks the pipeline: when the client falls behind
// past the queue bound the bus flips to overflow and drops everything
// after, letting the dispatcher cut the stream with a backpressure error
type Bus struct {
	ch   chan Event
	seq  atomic.Uint64
	over chan struct{}
	once sync.Once
}

// NewBus creates a bus buffering up to size events
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{
		ch:   make(chan Event, size),
		over: make(chan struct{}),
	}
}

// Emit implements EventSink. Events are stamped with the next sequence
// number in emit order
func (b *Bus) Emit(ev Event) {
	select {
	case <-b.over:
		return
	default:
	}
	ev.Seq = b.seq.Add(1)
	select {
	case b.ch <- ev:
	default:
		b.once.Do(func() { close(b.over) })
	}
}

// Events yields queued events in emit order
func (b *Bus) Events() <-chan Event { return b.ch }

// Overflowed is closed once the client queue has filled up
func (b *Bus) Overflowed() <-chan struct{} { return b.over }

// Next allocates a sequence number for dispatcher-origin events so they
// stay ordered with pipeline events
func (b *Bus) Next() uint64 { return b.seq.Add(1) }

package observer

import (
	"sync"
	"sync/atomic"

	"github.com/kode4food/paisley/pkg/api"
)

// ChannelObserver feeds events into a buffered channel for UIs and
// tests. Delivery never blocks the engine: events that do not fit the
// buffer are counted and dropped
type ChannelObserver struct {
	events  chan api.Event
	dropped atomic.Int64
	once    sync.Once
}

var _ api.Observer = (*ChannelObserver)(nil)

// Channel creates a channel observer with the given buffer size
func Channel(size int) *ChannelObserver {
	return &ChannelObserver{
		events: make(chan api.Event, size),
	}
}

func (o *ChannelObserver) HandleEvent(e api.Event) {
	select {
	case o.events <- e:
	default:
		o.dropped.Add(1)
	}
}

// Events returns the receive side of the event stream
func (o *ChannelObserver) Events() <-chan api.Event {
	return o.events
}

// Dropped reports how many events did not fit the buffer
func (o *ChannelObserver) Dropped() int64 {
	return o.dropped.Load()
}

// Close ends the stream. The engine must no longer be running the
// observed workflow when Close is called
func (o *ChannelObserver) Close() {
	o.once.Do(func() {
		close(o.events)
	})
}

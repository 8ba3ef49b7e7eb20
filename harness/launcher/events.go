package launcher

import (
	"sync"

	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/cskr/pubsub"
)

const (
	TopicLaunched = "launched"
	TopicExited   = "exited"
)

// Bus distributes process lifecycle events to subscribers.
// A nil *Bus drops all events.
type Bus struct {
	mutex  sync.Mutex
	ps     *pubsub.PubSub
	closed bool
}

func NewBus(capacity int) *Bus {
	return &Bus{ps: pubsub.New(capacity)}
}

// Subscribe returns a channel receiving model.Event values of the given topics,
// or of all topics if none are given. The channel is closed by Close.
// A nil *Bus returns an already closed channel.
func (b *Bus) Subscribe(topics ...string) chan interface{} {
	if b == nil {
		ch := make(chan interface{})
		close(ch)
		return ch
	}
	if len(topics) == 0 {
		topics = []string{TopicLaunched, TopicExited}
	}
	return b.ps.Sub(topics...)
}

func (b *Bus) Publish(e model.Event) {
	if b == nil {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	switch e.Type {
	case model.EventLaunched:
		b.ps.Pub(e, TopicLaunched)
	case model.EventExited:
		b.ps.Pub(e, TopicExited)
	}
}

// Close closes all subscriber channels. Later events are dropped.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ps.Shutdown()
}

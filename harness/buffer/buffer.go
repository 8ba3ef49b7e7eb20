// Package buffer implements a first-in-first-out (FIFO) fixed-capacity list
package buffer

import (
	"sync"

	"code.linksmart.eu/dt/sensor-fleet/model"
)

func NewBuffer(capacity uint8) Buffer {
	return Buffer{
		capacity: capacity,
	}
}

type Buffer struct {
	mutex    sync.RWMutex
	list     []model.Event
	capacity uint8
	index    uint8
}

// Insert adds an event, replacing the oldest one when the buffer is full
func (b *Buffer) Insert(e model.Event) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.capacity == 0 {
		return
	}
	if uint8(len(b.list)) < b.capacity { // buffer expanding
		b.list = append(b.list, e)
	} else { // buffer full
		if b.index == uint8(len(b.list)) {
			b.index = 0
		}
		b.list[b.index] = e
		b.index++
	}
}

// Collect returns the events from oldest to newest
func (b *Buffer) Collect() []model.Event {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	events := make([]model.Event, 0, len(b.list))
	if uint8(len(b.list)) < b.capacity {
		return append(events, b.list...)
	}
	events = append(events, b.list[b.index:]...)
	return append(events, b.list[:b.index]...)
}

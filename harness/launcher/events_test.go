package launcher

import (
	"testing"

	"code.linksmart.eu/dt/sensor-fleet/model"
)

func TestNilBus(t *testing.T) {
	var b *Bus
	ch := b.Subscribe()
	b.Publish(model.Event{Type: model.EventLaunched})
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("Expected a closed channel from a nil bus.")
	}
}

func TestBusClosed(t *testing.T) {
	b := NewBus(4)
	ch := b.Subscribe(TopicExited)
	b.Publish(model.Event{Type: model.EventLaunched})
	b.Publish(model.Event{Type: model.EventExited, PID: 7})
	b.Close()
	b.Close()
	b.Publish(model.Event{Type: model.EventExited, PID: 8})

	var pids []int
	for e := range ch {
		pids = append(pids, e.(model.Event).PID)
	}
	if len(pids) != 1 || pids[0] != 7 {
		t.Fatalf("Expected only the exit event before closing but got %v", pids)
	}
}

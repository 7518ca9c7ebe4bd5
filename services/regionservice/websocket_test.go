package regionservice

import (
	"testing"
	"time"

	"tabletop-core/internal/eventbus"
)

func TestBroadcastLoopStopsWithoutClosingChannel(t *testing.T) {
	ws := NewWebSocketServer(nil)
	broadcast := make(chan []byte, 1)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		ws.BroadcastLoop(broadcast, done)
		close(finished)
	}()

	close(done)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("broadcast loop did not stop")
	}

	// Канал остался открытым: публикация после остановки цикла не паникует.
	pub := NewFanoutPublisher(nil, broadcast)
	pub.Publish(eventbus.NewEvent(eventbus.EventTokenEnter, "u1", "scene-1", "r1", nil))
}

package regionservice

import (
	"context"
	"encoding/json"
	"log"

	"tabletop-core/internal/eventbus"
)

// FanoutPublisher is the publish port with two subscribers: the Kafka relay
// mirroring events to other session participants, and the websocket server
// broadcasting to locally connected clients. Both are fire-and-forget.
type FanoutPublisher struct {
	bus       *eventbus.EventBus
	broadcast chan<- []byte
}

func NewFanoutPublisher(bus *eventbus.EventBus, broadcast chan<- []byte) *FanoutPublisher {
	return &FanoutPublisher{bus: bus, broadcast: broadcast}
}

func (p *FanoutPublisher) Publish(ev eventbus.Event) {
	if p.bus != nil {
		if err := p.bus.PublishRegionEvent(context.Background(), ev); err != nil {
			log.Printf("Relay of %s failed: %v", ev.Name, err)
		}
	}
	if p.broadcast != nil {
		message, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Marshal of %s failed: %v", ev.Name, err)
			return
		}
		select {
		case p.broadcast <- message:
		default:
			log.Printf("Broadcast queue full, dropping %s", ev.Name)
		}
	}
}

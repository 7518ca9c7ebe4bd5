package regionarchivist

import (
	"context"
	"log"
	"time"

	"tabletop-core/internal/eventbus"
)

type Config struct {
	KafkaBrokers []string
}

// Service читает поток региональных событий и складывает его в Neo4j.
// Один архивист обслуживает все сцены; consumer group общая, чтобы каждое
// событие записывалось ровно один раз.
type Service struct {
	bus    *eventbus.EventBus
	client *Neo4jClient
}

func NewService(cfg Config) (*Service, error) {
	client, err := NewNeo4jClient()
	if err != nil {
		return nil, err
	}
	return &Service{
		bus:    eventbus.NewEventBus(cfg.KafkaBrokers),
		client: client,
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Println("RegionArchivist started.")
	go s.bus.Subscribe(ctx, eventbus.TopicRegionEvents, "region-archivist-group", s.archive)
}

func (s *Service) Stop() {
	s.bus.Close()
	s.client.Close()
}

func (s *Service) archive(ev eventbus.Event) {
	timestamp := ev.Timestamp.UTC().Format(time.RFC3339Nano)

	var err error
	switch ev.Name {
	case eventbus.EventTokenEnter, eventbus.EventTokenExit:
		tokenID, _ := ev.Data["token"].(string)
		if tokenID == "" {
			log.Printf("Crossing event %s without token, skipping", ev.EventID)
			return
		}
		relType := "ENTERED"
		if ev.Name == eventbus.EventTokenExit {
			relType = "EXITED"
		}
		err = s.client.RecordCrossing(ev.EventID, relType, ev.SceneID, ev.RegionID, tokenID, timestamp)
	default:
		err = s.client.RecordLifecycle(ev.EventID, ev.Name, ev.SceneID, ev.RegionID, timestamp, flattenData(ev.Data))
	}
	if err != nil {
		log.Printf("Archive of %s (%s) failed: %v", ev.Name, ev.EventID, err)
	}
}

// flattenData drops nested payload values: Neo4j properties hold scalars
// only, and crossing payloads carry segment endpoints as objects.
func flattenData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch v.(type) {
		case string, bool, float64, int, int64, nil:
			out[k] = v
		}
	}
	return out
}

package regionservice

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"tabletop-core/internal/document"
	"tabletop-core/internal/eventbus"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/region"
	"tabletop-core/internal/sceneconfig"
	"tabletop-core/internal/scenestore"
	"tabletop-core/internal/schema"
)

type Config struct {
	KafkaBrokers  []string
	HTTPAddr      string
	Minio         scenestore.Config
	SceneID       string
	UserID        string
	ProfileBucket string
}

// Service собирает воедино диспетчер регионов, HTTP/WebSocket фронт,
// хранилище сцен и шину событий одного участника сессии.
type Service struct {
	bus        *eventbus.EventBus
	httpServer *HTTPServer
	wsServer   *WebSocketServer
	store      *scenestore.Store
	profiles   *sceneconfig.Store
	validator  *schema.Validator
	dispatcher *Dispatcher
	grid       grid.Context
	rng        *rand.Rand
	broadcast  chan []byte
	done       chan struct{}
	cfg        Config

	// pendingHandlers is filled before Start, when the dispatcher does not
	// exist yet.
	pendingHandlers []pendingHandler

	// mu serializes dispatcher access between HTTP handlers and the Kafka
	// subscription goroutines. The dispatcher itself is single-threaded.
	mu sync.Mutex
}

type pendingHandler struct {
	behaviorType string
	handler      BehaviorHandler
}

func NewService(cfg Config) *Service {
	bus := eventbus.NewEventBus(cfg.KafkaBrokers)

	store, err := scenestore.NewStore(cfg.Minio)
	if err != nil {
		log.Printf("Warning: Failed to create MinIO client: %v", err)
		store = nil
	}

	validator, err := schema.NewRegionValidator()
	if err != nil {
		log.Printf("Warning: Region schema unavailable, documents accepted unvalidated: %v", err)
	}

	s := &Service{
		bus:       bus,
		store:     store,
		validator: validator,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		broadcast: make(chan []byte, 100),
		done:      make(chan struct{}),
		cfg:       cfg,
	}
	s.httpServer = NewHTTPServer(cfg.HTTPAddr)
	s.wsServer = NewWebSocketServer(s.handleViewedChanged)

	if store != nil && cfg.ProfileBucket != "" {
		s.profiles = sceneconfig.NewStore(store, cfg.ProfileBucket)
	}

	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Println("RegionService started. Initializing components...")

	s.grid = s.resolveGrid(ctx)

	publisher := NewFanoutPublisher(s.bus, s.broadcast)
	s.dispatcher = NewDispatcher(s.cfg.UserID, s.cfg.SceneID, s.grid, publisher)

	s.loadScene(ctx)

	s.httpServer.RegisterRoutes(s, s.wsServer)
	s.httpServer.Start()

	go s.wsServer.BroadcastLoop(s.broadcast, s.done)

	// Каждый участник читает зеркалируемые события независимо, поэтому
	// consumer group уникальна для пользователя.
	group := "region-service-" + s.cfg.UserID
	go s.bus.Subscribe(ctx, eventbus.TopicRegionEvents, group, func(ev eventbus.Event) {
		s.handleRemoteRegionEvent(ctx, ev)
	})
	go s.bus.Subscribe(ctx, eventbus.TopicDocumentEvents, group, func(ev eventbus.Event) {
		s.handleDocumentEvent(ctx, ev)
	})
	go s.bus.Subscribe(ctx, eventbus.TopicCombatEvents, group, func(ev eventbus.Event) {
		s.handleCombatEvent(ctx, ev)
	})

	log.Println("RegionService fully initialized and running.")
}

// Stop останавливает фронты и цикл рассылки. Канал broadcast остаётся
// открытым: подписчики Kafka могут публиковать до отмены своего контекста.
func (s *Service) Stop() {
	s.bus.Close()
	s.httpServer.Stop()
	close(s.done)
}

// RegisterBehaviorHandler binds a behavior type to its handler. Must be
// called before Start.
func (s *Service) RegisterBehaviorHandler(behaviorType string, h BehaviorHandler) {
	s.pendingHandlers = append(s.pendingHandlers, pendingHandler{behaviorType, h})
}

// resolveGrid берёт профиль сцены, если он есть, иначе сетку из документа
// сцены; по умолчанию — сцена без сетки.
func (s *Service) resolveGrid(ctx context.Context) grid.Context {
	if s.profiles != nil {
		profile, err := s.profiles.GetProfile(ctx, s.cfg.SceneID)
		if err == nil {
			return document.GridDocument{
				Type:     profile.GridType,
				Size:     profile.GridSize,
				Distance: profile.GridDistance,
			}.Context()
		}
		log.Printf("Scene profile unavailable for %s: %v", s.cfg.SceneID, err)
	}
	if s.store != nil {
		if scene, err := s.store.LoadScene(ctx, s.cfg.SceneID); err == nil {
			return scene.Grid.Context()
		}
	}
	return grid.Context{}
}

func (s *Service) loadScene(ctx context.Context) {
	for _, ph := range s.pendingHandlers {
		s.dispatcher.RegisterHandler(ph.behaviorType, ph.handler)
	}
	s.pendingHandlers = nil

	if s.store == nil {
		log.Println("MinIO client not available, starting with an empty scene")
		return
	}
	scene, err := s.store.LoadScene(ctx, s.cfg.SceneID)
	if err != nil {
		log.Printf("Scene %s not loaded, starting empty: %v", s.cfg.SceneID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range scene.Tokens {
		if err := s.dispatcher.UpsertToken(ctx, tok); err != nil {
			log.Printf("Token %s rejected on scene load: %v", tok.ID, err)
		}
	}
	for _, doc := range scene.Regions {
		if err := s.dispatcher.HandleRegionCreated(ctx, doc); err != nil {
			log.Printf("Region %s rejected on scene load: %v", doc.ID, err)
		}
	}
	log.Printf("Scene %s loaded: %d regions, %d tokens", scene.ID, len(scene.Regions), len(scene.Tokens))
}

func (s *Service) handleViewedChanged(regionID string, viewed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.HandleViewedChanged(context.Background(), regionID, viewed)
}

// handleRemoteRegionEvent re-dispatches a region event mirrored by another
// participant to the local behaviors. The dispatcher drops our own events.
func (s *Service) handleRemoteRegionEvent(ctx context.Context, ev eventbus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher.HandleRemoteEvent(ctx, ev)
}

// handleDocumentEvent applies a document change made by another participant
// to the local scene model.
func (s *Service) handleDocumentEvent(ctx context.Context, ev eventbus.Event) {
	if ev.User == s.cfg.UserID || ev.SceneID != s.cfg.SceneID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Name {
	case eventbus.TypeRegionCreated, eventbus.TypeRegionUpdated:
		doc, err := decodeData[document.RegionDocument](ev.Data, "document")
		if err != nil {
			log.Printf("Bad %s payload: %v", ev.Name, err)
			return
		}
		var applyErr error
		if ev.Name == eventbus.TypeRegionCreated {
			applyErr = s.dispatcher.HandleRegionCreated(ctx, doc)
		} else {
			applyErr = s.dispatcher.HandleRegionUpdated(ctx, doc)
		}
		if applyErr != nil {
			log.Printf("Remote %s for %s failed: %v", ev.Name, doc.ID, applyErr)
		}
	case eventbus.TypeRegionDeleted:
		s.dispatcher.HandleRegionDeleted(ctx, ev.RegionID)
	case eventbus.TypeTokenMoved:
		tokenID, _ := ev.Data["token"].(string)
		waypoints, err := decodeData[[]region.Waypoint](ev.Data, "waypoints")
		if err != nil {
			log.Printf("Bad %s payload: %v", ev.Name, err)
			return
		}
		if tokenID == "" || len(waypoints) == 0 {
			log.Printf("Bad %s payload: missing token or waypoints", ev.Name)
			return
		}
		if err := s.dispatcher.HandleTokenMoved(ctx, tokenID, waypoints); err != nil {
			log.Printf("Remote move of %s failed: %v", tokenID, err)
		}
	case eventbus.TypeBehaviorToggled:
		behaviorID, _ := ev.Data["behavior"].(string)
		disabled, _ := ev.Data["disabled"].(bool)
		s.dispatcher.HandleBehaviorToggled(ctx, ev.RegionID, behaviorID, disabled)
	}
}

// handleCombatEvent translates combat tracker progress into round/turn
// lifecycle events for regions with members.
func (s *Service) handleCombatEvent(ctx context.Context, ev eventbus.Event) {
	if ev.SceneID != s.cfg.SceneID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Name {
	case eventbus.TypeRoundAdvanced:
		prev := intField(ev.Data, "prev_round")
		round := intField(ev.Data, "round")
		skipped, _ := ev.Data["skipped"].(bool)
		s.dispatcher.HandleRoundAdvanced(ctx, prev, round, skipped)
	case eventbus.TypeTurnAdvanced:
		prevToken, _ := ev.Data["prev_token"].(string)
		token, _ := ev.Data["token"].(string)
		turn := intField(ev.Data, "turn")
		round := intField(ev.Data, "round")
		skipped, _ := ev.Data["skipped"].(bool)
		s.dispatcher.HandleTurnAdvanced(ctx, prevToken, token, turn, round, skipped)
	}
}

// decodeData re-decodes a structured field of the generic event payload.
func decodeData[T any](data map[string]interface{}, key string) (T, error) {
	var out T
	raw, err := json.Marshal(data[key])
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// intField: JSON numbers arrive as float64.
func intField(data map[string]interface{}, key string) int {
	if f, ok := data[key].(float64); ok {
		return int(f)
	}
	return 0
}

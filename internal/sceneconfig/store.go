// internal/sceneconfig/store.go

package sceneconfig

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile — профиль сетки сцены (полностью соответствует YAML).
type Profile struct {
	GridType     string  `yaml:"grid_type,omitempty"`
	GridSize     float64 `yaml:"grid_size,omitempty"`
	GridDistance float64 `yaml:"grid_distance,omitempty"`
	Elevation    struct {
		Bottom *float64 `yaml:"bottom,omitempty"`
		Top    *float64 `yaml:"top,omitempty"`
	} `yaml:"elevation,omitempty"`
	Placement struct {
		MaxAttempts int `yaml:"max_attempts,omitempty"`
	} `yaml:"placement,omitempty"`
}

// ObjectFetcher — источник YAML-объектов (MinIO в проде).
type ObjectFetcher interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Store управляет профилями сцен с кэшированием и фоновым сбросом кэша.
type Store struct {
	fetcher   ObjectFetcher
	cache     map[string]*Profile
	cacheLock sync.RWMutex
	bucket    string
}

// NewStore создаёт новый config store.
func NewStore(fetcher ObjectFetcher, bucket string) *Store {
	store := &Store{
		fetcher: fetcher,
		cache:   make(map[string]*Profile),
		bucket:  bucket,
	}
	go store.backgroundRefresh()
	return store
}

// GetProfile возвращает профиль сцены (с кэшированием).
func (s *Store) GetProfile(ctx context.Context, sceneID string) (*Profile, error) {
	s.cacheLock.RLock()
	if p, ok := s.cache[sceneID]; ok {
		s.cacheLock.RUnlock()
		return p, nil
	}
	s.cacheLock.RUnlock()

	key := path.Join("scene-profiles", sceneID+".yaml")
	data, err := s.fetcher.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found: %w", sceneID, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("invalid YAML for %s: %w", sceneID, err)
	}

	s.cacheLock.Lock()
	s.cache[sceneID] = &profile
	s.cacheLock.Unlock()

	return &profile, nil
}

// backgroundRefresh сбрасывает кэш каждые 2 минуты (hot-reload профилей).
func (s *Store) backgroundRefresh() {
	ticker := time.NewTicker(120 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.cacheLock.Lock()
		s.cache = make(map[string]*Profile)
		s.cacheLock.Unlock()
	}
}

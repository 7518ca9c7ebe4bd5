package regionservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tabletop-core/internal/document"
	"tabletop-core/internal/errs"
	"tabletop-core/internal/eventbus"
	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/region"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps the engine's error taxonomy to HTTP statuses: malformed
// documents are the client's fault, geometry failures mean the stored region
// is unusable, placement exhaustion is a conflict with the current geometry.
func writeError(w http.ResponseWriter, err error) {
	var cfgErr *errs.ConfigurationError
	var geoErr *errs.GeometryError
	var placeErr *errs.PlacementError
	switch {
	case errors.As(err, &cfgErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &geoErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &placeErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) ListRegionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	docs := s.dispatcher.RegionDocuments()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"regions": docs})
}

func (s *Service) GetRegionHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	s.mu.Lock()
	doc, ok := s.dispatcher.RegionDocument(regionID)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) CreateRegionHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	doc, err := document.DecodeRegion(raw, s.validator)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	s.mu.Lock()
	err = s.dispatcher.HandleRegionCreated(r.Context(), *doc)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	s.persistRegion(r.Context(), doc, eventbus.TypeRegionCreated)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Service) UpdateRegionHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	doc, err := document.DecodeRegion(raw, s.validator)
	if err != nil {
		writeError(w, err)
		return
	}
	doc.ID = regionID

	s.mu.Lock()
	err = s.dispatcher.HandleRegionUpdated(r.Context(), *doc)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	s.persistRegion(r.Context(), doc, eventbus.TypeRegionUpdated)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) DeleteRegionHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	s.mu.Lock()
	_, ok := s.dispatcher.RegionDocument(regionID)
	if ok {
		s.dispatcher.HandleRegionDeleted(r.Context(), regionID)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}

	if s.store != nil {
		if err := s.store.DeleteRegion(r.Context(), s.cfg.SceneID, regionID); err != nil {
			writeError(w, err)
			return
		}
	}
	ev := eventbus.NewEvent(eventbus.TypeRegionDeleted, s.cfg.UserID, s.cfg.SceneID, regionID, nil)
	if err := s.bus.PublishDocumentEvent(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) GetMembersHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	s.mu.Lock()
	_, ok := s.dispatcher.RegionDocument(regionID)
	members := s.dispatcher.Members(regionID)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}
	if members == nil {
		members = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

func (s *Service) TestPointHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	var p geometry.ElevatedPoint
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid point JSON", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	reg, ok := s.dispatcher.Region(regionID)
	var inside bool
	var err error
	if ok {
		inside, err = reg.TestPoint(p)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"inside": inside})
}

func (s *Service) SegmentizeHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	var req struct {
		Waypoints []region.Waypoint `json:"waypoints"`
		Samples   []geometry.Point  `json:"samples,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request JSON", http.StatusBadRequest)
		return
	}
	if len(req.Waypoints) < 2 {
		http.Error(w, "at least two waypoints required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	reg, ok := s.dispatcher.Region(regionID)
	var segments []region.MovementSegment
	var err error
	if ok {
		segments, err = reg.SegmentizeMovementPath(req.Waypoints, req.Samples, s.grid)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if segments == nil {
		segments = []region.MovementSegment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"segments": segments})
}

func (s *Service) PlaceTokenHandler(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region_id"]

	var req struct {
		Entity   string `json:"entity"`
		Attempts int    `json:"attempts,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request JSON", http.StatusBadRequest)
		return
	}

	// На сценах с сеткой позиция привязывается к пикселю, как и сама
	// геометрия региона.
	var snap func(geometry.Point) geometry.Point
	if !s.grid.Gridless() {
		snap = func(p geometry.Point) geometry.Point {
			return geometry.Point{X: grid.SnapToPixel(p.X), Y: grid.SnapToPixel(p.Y)}
		}
	}

	s.mu.Lock()
	reg, ok := s.dispatcher.Region(regionID)
	var p geometry.Point
	var err error
	if ok {
		p, err = reg.SampleInteriorPoint(req.Entity, s.rng, req.Attempts, snap)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Service) MoveTokenHandler(w http.ResponseWriter, r *http.Request) {
	tokenID := mux.Vars(r)["token_id"]

	var req struct {
		Waypoints []region.Waypoint `json:"waypoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request JSON", http.StatusBadRequest)
		return
	}
	if len(req.Waypoints) < 2 {
		http.Error(w, "at least two waypoints required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	_, known := s.dispatcher.Token(tokenID)
	var err error
	if known {
		err = s.dispatcher.HandleTokenMoved(r.Context(), tokenID, req.Waypoints)
	}
	tok, _ := s.dispatcher.Token(tokenID)
	s.mu.Unlock()
	if !known {
		http.Error(w, "token not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	ev := eventbus.NewEvent(eventbus.TypeTokenMoved, s.cfg.UserID, s.cfg.SceneID, "", map[string]interface{}{
		"token":     tokenID,
		"waypoints": req.Waypoints,
	})
	if err := s.bus.PublishDocumentEvent(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// persistRegion saves the document and mirrors the change to the other
// participants. Both failures are logged, not surfaced: the in-memory scene
// already applied the change.
func (s *Service) persistRegion(ctx context.Context, doc *document.RegionDocument, eventType string) {
	if s.store != nil {
		if err := s.store.SaveRegion(ctx, s.cfg.SceneID, doc); err != nil {
			log.Printf("Persist of region %s failed: %v", doc.ID, err)
		}
	}
	ev := eventbus.NewEvent(eventType, s.cfg.UserID, s.cfg.SceneID, doc.ID, map[string]interface{}{
		"document": doc,
	})
	if err := s.bus.PublishDocumentEvent(ctx, ev); err != nil {
		log.Printf("Mirror of region %s failed: %v", doc.ID, err)
	}
}

// services/regionservice/dispatcher.go
package regionservice

import (
	"context"
	"fmt"
	"log"

	"tabletop-core/internal/document"
	"tabletop-core/internal/errs"
	"tabletop-core/internal/eventbus"
	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/region"
)

// BehaviorHandler reacts to region events. Implementations are registered
// per behavior type; region documents reference them by that type.
type BehaviorHandler interface {
	HandleRegionEvent(ctx context.Context, ev eventbus.Event) error
}

// Publisher is the outbound port for events that must reach other session
// participants. The dispatcher delivers locally first, then publishes.
type Publisher interface {
	Publish(ev eventbus.Event)
}

type trackedRegion struct {
	doc    document.RegionDocument
	region *region.Region
	// members is the source of truth for which tokens receive round/turn
	// lifecycle events from this region.
	members map[string]bool
}

// Dispatcher owns token-in-region membership and routes region events to
// behavior handlers and to the publish port. Single-threaded by design: all
// entry points are called from the service's event loop.
type Dispatcher struct {
	user     string
	sceneID  string
	grid     grid.Context
	regions  map[string]*trackedRegion
	tokens   map[string]document.TokenDocument
	handlers map[string]BehaviorHandler
	pub      Publisher
}

func NewDispatcher(user, sceneID string, g grid.Context, pub Publisher) *Dispatcher {
	return &Dispatcher{
		user:     user,
		sceneID:  sceneID,
		grid:     g,
		regions:  make(map[string]*trackedRegion),
		tokens:   make(map[string]document.TokenDocument),
		handlers: make(map[string]BehaviorHandler),
		pub:      pub,
	}
}

// RegisterHandler binds a behavior type to its handler.
func (d *Dispatcher) RegisterHandler(behaviorType string, h BehaviorHandler) {
	d.handlers[behaviorType] = h
}

// Region returns the live region aggregate, for query endpoints.
func (d *Dispatcher) Region(regionID string) (*region.Region, bool) {
	tr, ok := d.regions[regionID]
	if !ok {
		return nil, false
	}
	return tr.region, true
}

// RegionDocument returns the persisted form of a tracked region.
func (d *Dispatcher) RegionDocument(regionID string) (document.RegionDocument, bool) {
	tr, ok := d.regions[regionID]
	if !ok {
		return document.RegionDocument{}, false
	}
	return tr.doc, true
}

// RegionDocuments returns the persisted form of every tracked region.
func (d *Dispatcher) RegionDocuments() []document.RegionDocument {
	docs := make([]document.RegionDocument, 0, len(d.regions))
	for _, tr := range d.regions {
		docs = append(docs, tr.doc)
	}
	return docs
}

// Token returns the tracked position of a token.
func (d *Dispatcher) Token(tokenID string) (document.TokenDocument, bool) {
	tok, ok := d.tokens[tokenID]
	return tok, ok
}

// Members returns the current token membership of a region.
func (d *Dispatcher) Members(regionID string) []string {
	tr, ok := d.regions[regionID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(tr.members))
	for id := range tr.members {
		members = append(members, id)
	}
	return members
}

// HandleRegionCreated starts tracking a region, evaluates every scene token
// against it and fires activation events for its enabled behaviors.
func (d *Dispatcher) HandleRegionCreated(ctx context.Context, doc document.RegionDocument) error {
	tr := &trackedRegion{
		doc:     doc,
		region:  doc.BuildRegion(),
		members: make(map[string]bool),
	}
	d.regions[doc.ID] = tr
	for _, b := range doc.Behaviors {
		if !b.Disabled {
			d.emit(ctx, tr, eventbus.EventBehaviorActivated, map[string]interface{}{"behavior": b.ID})
		}
	}
	return d.revalidateRegion(ctx, tr)
}

// HandleRegionUpdated replaces the region's document. A geometry-affecting
// change invalidates the cache, re-tests every scene token (a full re-test,
// not an incremental diff) and fires a boundary event.
func (d *Dispatcher) HandleRegionUpdated(ctx context.Context, doc document.RegionDocument) error {
	tr, ok := d.regions[doc.ID]
	if !ok {
		return d.HandleRegionCreated(ctx, doc)
	}
	geometryChanged := !shapesEqual(tr.doc.Shapes, doc.Shapes) || tr.doc.Elevation != doc.Elevation
	tr.doc = doc
	if !geometryChanged {
		return nil
	}
	tr.region.Update(doc.Shapes, doc.Elevation.Range())
	if err := d.revalidateRegion(ctx, tr); err != nil {
		return err
	}
	d.emit(ctx, tr, eventbus.EventRegionBoundary, nil)
	return nil
}

// HandleRegionDeleted releases membership (with exit events) and fires
// deactivation for enabled behaviors.
func (d *Dispatcher) HandleRegionDeleted(ctx context.Context, regionID string) {
	tr, ok := d.regions[regionID]
	if !ok {
		return
	}
	for tokenID := range tr.members {
		delete(tr.members, tokenID)
		d.emit(ctx, tr, eventbus.EventTokenExit, map[string]interface{}{"token": tokenID})
	}
	for _, b := range tr.doc.Behaviors {
		if !b.Disabled {
			d.emit(ctx, tr, eventbus.EventBehaviorDeactivated, map[string]interface{}{"behavior": b.ID})
		}
	}
	delete(d.regions, regionID)
}

// HandleBehaviorToggled fires activation or deactivation for one behavior.
func (d *Dispatcher) HandleBehaviorToggled(ctx context.Context, regionID, behaviorID string, disabled bool) {
	tr, ok := d.regions[regionID]
	if !ok {
		return
	}
	for i := range tr.doc.Behaviors {
		if tr.doc.Behaviors[i].ID != behaviorID {
			continue
		}
		if tr.doc.Behaviors[i].Disabled == disabled {
			return
		}
		// Деактивация доставляется поведению до отключения, активация —
		// после включения: поведение видит оба своих переходных события.
		if disabled {
			d.emit(ctx, tr, eventbus.EventBehaviorDeactivated, map[string]interface{}{"behavior": behaviorID})
			tr.doc.Behaviors[i].Disabled = true
		} else {
			tr.doc.Behaviors[i].Disabled = false
			d.emit(ctx, tr, eventbus.EventBehaviorActivated, map[string]interface{}{"behavior": behaviorID})
		}
		return
	}
}

// HandleViewedChanged fires viewed/unviewed lifecycle events for every
// enabled behavior of a region when a client starts or stops viewing it.
func (d *Dispatcher) HandleViewedChanged(ctx context.Context, regionID string, viewed bool) {
	tr, ok := d.regions[regionID]
	if !ok {
		return
	}
	name := eventbus.EventBehaviorViewed
	if !viewed {
		name = eventbus.EventBehaviorUnviewed
	}
	for _, b := range tr.doc.Behaviors {
		if !b.Disabled {
			d.emit(ctx, tr, name, map[string]interface{}{"behavior": b.ID})
		}
	}
}

// UpsertToken registers or repositions a token without a movement path
// (initial placement, off-path correction) and revalidates its membership
// in every region.
func (d *Dispatcher) UpsertToken(ctx context.Context, tok document.TokenDocument) error {
	d.tokens[tok.ID] = tok
	for _, tr := range d.regions {
		if err := d.revalidateToken(ctx, tr, tok); err != nil {
			return err
		}
	}
	return nil
}

// RemoveToken drops a token and fires exit events for the regions that held
// it.
func (d *Dispatcher) RemoveToken(ctx context.Context, tokenID string) {
	delete(d.tokens, tokenID)
	for _, tr := range d.regions {
		if tr.members[tokenID] {
			delete(tr.members, tokenID)
			d.emit(ctx, tr, eventbus.EventTokenExit, map[string]interface{}{"token": tokenID})
		}
	}
}

// HandleTokenMoved segments the movement path against every tracked region
// and applies the enter/exit transitions. Geometry errors propagate to the
// caller: dropping boundary events would corrupt rule enforcement
// downstream.
func (d *Dispatcher) HandleTokenMoved(ctx context.Context, tokenID string, waypoints []region.Waypoint) error {
	if len(waypoints) == 0 {
		return &errs.ConfigurationError{Reason: "movement path has no waypoints"}
	}
	tok, ok := d.tokens[tokenID]
	if !ok {
		return fmt.Errorf("unknown token %s", tokenID)
	}
	samples := tok.SampleOffsets()
	for _, tr := range d.regions {
		could, err := tr.region.CouldMovementIntersect(waypoints, samples)
		if err != nil {
			return err
		}
		if !could {
			continue
		}
		segments, err := tr.region.SegmentizeMovementPath(waypoints, samples, d.grid)
		if err != nil {
			return err
		}
		for _, seg := range segments {
			switch seg.Type {
			case region.SegmentEnter:
				if !tr.members[tokenID] {
					tr.members[tokenID] = true
					d.emit(ctx, tr, eventbus.EventTokenEnter, segmentData(tokenID, seg))
				}
			case region.SegmentExit:
				if tr.members[tokenID] {
					delete(tr.members, tokenID)
					d.emit(ctx, tr, eventbus.EventTokenExit, segmentData(tokenID, seg))
				}
			}
		}
	}
	last := waypoints[len(waypoints)-1]
	tok.X, tok.Y, tok.Elevation = last.X, last.Y, last.Elevation
	d.tokens[tokenID] = tok
	return nil
}

// HandleRoundAdvanced fires round lifecycle events to regions with members.
func (d *Dispatcher) HandleRoundAdvanced(ctx context.Context, prevRound, round int, skipped bool) {
	for _, tr := range d.regions {
		if len(tr.members) == 0 {
			continue
		}
		d.emit(ctx, tr, eventbus.EventRoundEnd, map[string]interface{}{"round": prevRound, "skipped": skipped})
		d.emit(ctx, tr, eventbus.EventRoundStart, map[string]interface{}{"round": round, "skipped": skipped})
	}
}

// HandleTurnAdvanced fires turn lifecycle events to the regions holding the
// previous and current combatant tokens.
func (d *Dispatcher) HandleTurnAdvanced(ctx context.Context, prevTokenID, tokenID string, turn, round int, skipped bool) {
	for _, tr := range d.regions {
		if prevTokenID != "" && tr.members[prevTokenID] {
			d.emit(ctx, tr, eventbus.EventTurnEnd, map[string]interface{}{
				"token": prevTokenID, "turn": turn - 1, "round": round, "skipped": skipped,
			})
		}
		if tokenID != "" && tr.members[tokenID] {
			d.emit(ctx, tr, eventbus.EventTurnStart, map[string]interface{}{
				"token": tokenID, "turn": turn, "round": round, "skipped": skipped,
			})
		}
	}
}

// HandleRemoteEvent re-dispatches an event mirrored by another participant.
// Events originated by this participant are dropped; the region reference is
// re-hydrated from its identifier.
func (d *Dispatcher) HandleRemoteEvent(ctx context.Context, ev eventbus.Event) {
	if ev.User == d.user || ev.SceneID != d.sceneID {
		return
	}
	tr, ok := d.regions[ev.RegionID]
	if !ok {
		log.Printf("Remote event %s for unknown region %s", ev.Name, ev.RegionID)
		return
	}
	d.dispatchToBehaviors(ctx, tr, ev)
}

// revalidateRegion re-tests every scene token against the region.
func (d *Dispatcher) revalidateRegion(ctx context.Context, tr *trackedRegion) error {
	for _, tok := range d.tokens {
		if err := d.revalidateToken(ctx, tr, tok); err != nil {
			return err
		}
	}
	return nil
}

// revalidateToken checks one token against one region and fires the
// membership transition if it changed.
func (d *Dispatcher) revalidateToken(ctx context.Context, tr *trackedRegion, tok document.TokenDocument) error {
	inside, err := tokenInside(tr.region, tok)
	if err != nil {
		return err
	}
	switch {
	case inside && !tr.members[tok.ID]:
		tr.members[tok.ID] = true
		d.emit(ctx, tr, eventbus.EventTokenEnter, map[string]interface{}{"token": tok.ID})
	case !inside && tr.members[tok.ID]:
		delete(tr.members, tok.ID)
		d.emit(ctx, tr, eventbus.EventTokenExit, map[string]interface{}{"token": tok.ID})
	}
	return nil
}

func tokenInside(r *region.Region, tok document.TokenDocument) (bool, error) {
	pos := tok.Position()
	for _, s := range tok.SampleOffsets() {
		inside, err := r.TestPoint(geometry.ElevatedPoint{X: pos.X + s.X, Y: pos.Y + s.Y, Elevation: pos.Elevation})
		if err != nil {
			return false, err
		}
		if inside {
			return true, nil
		}
	}
	return false, nil
}

// emit builds the event, delivers it to the region's behaviors and hands it
// to the publish port for session fan-out.
func (d *Dispatcher) emit(ctx context.Context, tr *trackedRegion, name string, data map[string]interface{}) {
	ev := eventbus.NewEvent(name, d.user, d.sceneID, tr.doc.ID, data)
	d.dispatchToBehaviors(ctx, tr, ev)
	if d.pub != nil {
		d.pub.Publish(ev)
	}
}

// dispatchToBehaviors delivers the event to every subscribed behavior with
// isolated failure: one handler's error or panic is logged and does not
// abort delivery to the rest, nor propagate to the triggering operation.
func (d *Dispatcher) dispatchToBehaviors(ctx context.Context, tr *trackedRegion, ev eventbus.Event) {
	for _, b := range tr.doc.Behaviors {
		if b.Disabled || !behaviorSubscribes(b, ev.Name) {
			continue
		}
		handler, ok := d.handlers[b.Type]
		if !ok {
			continue
		}
		if err := callHandler(ctx, handler, ev); err != nil {
			log.Printf("Dispatch %s to behavior %s failed: %v", ev.Name, b.ID, &errs.HandlerError{Behavior: b.ID, Err: err})
		}
	}
}

func callHandler(ctx context.Context, h BehaviorHandler, ev eventbus.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.HandleRegionEvent(ctx, ev)
}

// behaviorSubscribes: пустой список событий означает подписку на все.
func behaviorSubscribes(b document.Behavior, name string) bool {
	if len(b.Events) == 0 {
		return true
	}
	for _, e := range b.Events {
		if e == name {
			return true
		}
	}
	return false
}

func segmentData(tokenID string, seg region.MovementSegment) map[string]interface{} {
	return map[string]interface{}{
		"token":    tokenID,
		"from":     seg.From,
		"to":       seg.To,
		"teleport": seg.Teleport,
	}
}

func shapesEqual(a, b []geometry.ShapeData) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Hole != b[i].Hole ||
			a[i].X != b[i].X || a[i].Y != b[i].Y ||
			a[i].Width != b[i].Width || a[i].Height != b[i].Height ||
			a[i].RadiusX != b[i].RadiusX || a[i].RadiusY != b[i].RadiusY ||
			a[i].Rotation != b[i].Rotation || len(a[i].Points) != len(b[i].Points) {
			return false
		}
		for j := range a[i].Points {
			if a[i].Points[j] != b[i].Points[j] {
				return false
			}
		}
	}
	return true
}

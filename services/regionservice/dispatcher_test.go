package regionservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-core/internal/document"
	"tabletop-core/internal/errs"
	"tabletop-core/internal/eventbus"
	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/region"
)

type capturePublisher struct {
	events []eventbus.Event
}

func (p *capturePublisher) Publish(ev eventbus.Event) {
	p.events = append(p.events, ev)
}

func (p *capturePublisher) named(name string) []eventbus.Event {
	var out []eventbus.Event
	for _, ev := range p.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type recordingHandler struct {
	events []eventbus.Event
}

func (h *recordingHandler) HandleRegionEvent(_ context.Context, ev eventbus.Event) error {
	h.events = append(h.events, ev)
	return nil
}

type panicHandler struct{}

func (panicHandler) HandleRegionEvent(context.Context, eventbus.Event) error {
	panic("handler exploded")
}

func squareRegionDoc(id string, behaviors ...document.Behavior) document.RegionDocument {
	return document.RegionDocument{
		ID:   id,
		Name: id,
		Shapes: []geometry.ShapeData{
			{Type: geometry.ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
		},
		Behaviors: behaviors,
	}
}

func newTestDispatcher() (*Dispatcher, *capturePublisher) {
	pub := &capturePublisher{}
	return NewDispatcher("u1", "scene-1", grid.Context{}, pub), pub
}

func TestDispatcherTokenEnterExit(t *testing.T) {
	ctx := context.Background()
	d, pub := newTestDispatcher()

	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("r1")))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: -50, Y: 50}))
	assert.Empty(t, pub.named(eventbus.EventTokenEnter), "token outside must not enter on upsert")

	require.NoError(t, d.HandleTokenMoved(ctx, "tok1", []region.Waypoint{
		{X: -50, Y: 50},
		{X: 50, Y: 50},
	}))
	require.Len(t, pub.named(eventbus.EventTokenEnter), 1)
	assert.Equal(t, []string{"tok1"}, d.Members("r1"))

	require.NoError(t, d.HandleTokenMoved(ctx, "tok1", []region.Waypoint{
		{X: 50, Y: 50},
		{X: 150, Y: 50},
	}))
	require.Len(t, pub.named(eventbus.EventTokenExit), 1)
	assert.Empty(t, d.Members("r1"))

	tok, ok := d.Token("tok1")
	require.True(t, ok)
	assert.Equal(t, 150.0, tok.X)
	assert.Equal(t, 50.0, tok.Y)
}

func TestDispatcherUpsertInsideToken(t *testing.T) {
	ctx := context.Background()
	d, pub := newTestDispatcher()

	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("r1")))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))
	assert.Len(t, pub.named(eventbus.EventTokenEnter), 1)

	// Повторная постановка на то же место не даёт второго входа.
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 60, Y: 60}))
	assert.Len(t, pub.named(eventbus.EventTokenEnter), 1)

	d.RemoveToken(ctx, "tok1")
	assert.Len(t, pub.named(eventbus.EventTokenExit), 1)
	assert.Empty(t, d.Members("r1"))
}

func TestDispatcherBehaviorLifecycle(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	echo := &recordingHandler{}
	d.RegisterHandler("echo", echo)

	doc := squareRegionDoc("r1", document.Behavior{ID: "b1", Type: "echo"})
	require.NoError(t, d.HandleRegionCreated(ctx, doc))
	require.Len(t, echo.events, 1)
	assert.Equal(t, eventbus.EventBehaviorActivated, echo.events[0].Name)

	d.HandleViewedChanged(ctx, "r1", true)
	require.Len(t, echo.events, 2)
	assert.Equal(t, eventbus.EventBehaviorViewed, echo.events[1].Name)

	d.HandleBehaviorToggled(ctx, "r1", "b1", true)
	require.Len(t, echo.events, 3)
	assert.Equal(t, eventbus.EventBehaviorDeactivated, echo.events[2].Name)

	// Отключённое поведение не получает событий.
	d.HandleViewedChanged(ctx, "r1", true)
	assert.Len(t, echo.events, 3)

	// Повторное отключение — не событие.
	d.HandleBehaviorToggled(ctx, "r1", "b1", true)
	assert.Len(t, echo.events, 3)
}

func TestDispatcherBehaviorEventFilter(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	echo := &recordingHandler{}
	d.RegisterHandler("echo", echo)

	doc := squareRegionDoc("r1", document.Behavior{
		ID: "b1", Type: "echo", Events: []string{eventbus.EventTokenEnter},
	})
	require.NoError(t, d.HandleRegionCreated(ctx, doc))
	assert.Empty(t, echo.events, "activation is filtered out by the subscription list")

	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))
	require.Len(t, echo.events, 1)
	assert.Equal(t, eventbus.EventTokenEnter, echo.events[0].Name)
}

// Падение одного обработчика не прерывает доставку остальным и не
// распространяется на вызвавшую операцию.
func TestDispatcherHandlerFailureIsolated(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	echo := &recordingHandler{}
	d.RegisterHandler("boom", panicHandler{})
	d.RegisterHandler("echo", echo)

	doc := squareRegionDoc("r1",
		document.Behavior{ID: "b-boom", Type: "boom"},
		document.Behavior{ID: "b-echo", Type: "echo"},
	)
	require.NoError(t, d.HandleRegionCreated(ctx, doc))

	err := d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50})
	require.NoError(t, err)

	var names []string
	for _, ev := range echo.events {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, eventbus.EventTokenEnter)
}

func TestDispatcherRegionUpdate(t *testing.T) {
	ctx := context.Background()
	d, pub := newTestDispatcher()

	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("r1")))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))
	require.Len(t, pub.named(eventbus.EventTokenEnter), 1)

	// Косметическое изменение не трогает геометрию и членство.
	renamed := squareRegionDoc("r1")
	renamed.Name = "renamed"
	require.NoError(t, d.HandleRegionUpdated(ctx, renamed))
	assert.Empty(t, pub.named(eventbus.EventRegionBoundary))

	// Сдвиг геометрии: полный повторный тест всех токенов плюс boundary.
	moved := squareRegionDoc("r1")
	moved.Shapes = []geometry.ShapeData{
		{Type: geometry.ShapeTypeRectangle, X: 500, Y: 500, Width: 100, Height: 100},
	}
	require.NoError(t, d.HandleRegionUpdated(ctx, moved))
	assert.Len(t, pub.named(eventbus.EventTokenExit), 1)
	assert.Len(t, pub.named(eventbus.EventRegionBoundary), 1)
	assert.Empty(t, d.Members("r1"))
}

func TestDispatcherRegionDeleted(t *testing.T) {
	ctx := context.Background()
	d, pub := newTestDispatcher()

	doc := squareRegionDoc("r1", document.Behavior{ID: "b1", Type: "echo"})
	require.NoError(t, d.HandleRegionCreated(ctx, doc))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))

	d.HandleRegionDeleted(ctx, "r1")
	assert.Len(t, pub.named(eventbus.EventTokenExit), 1)
	assert.Len(t, pub.named(eventbus.EventBehaviorDeactivated), 1)

	_, ok := d.Region("r1")
	assert.False(t, ok)
}

func TestDispatcherRoundAndTurnEvents(t *testing.T) {
	ctx := context.Background()
	d, pub := newTestDispatcher()

	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("occupied")))
	require.NoError(t, d.HandleRegionCreated(ctx, document.RegionDocument{
		ID: "empty", Name: "empty",
		Shapes: []geometry.ShapeData{
			{Type: geometry.ShapeTypeRectangle, X: 500, Y: 500, Width: 10, Height: 10},
		},
	}))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))

	d.HandleRoundAdvanced(ctx, 1, 2, false)
	// Только регион с членами получает события раунда.
	assert.Len(t, pub.named(eventbus.EventRoundStart), 1)
	assert.Len(t, pub.named(eventbus.EventRoundEnd), 1)
	assert.Equal(t, "occupied", pub.named(eventbus.EventRoundStart)[0].RegionID)

	d.HandleTurnAdvanced(ctx, "", "tok1", 1, 2, false)
	require.Len(t, pub.named(eventbus.EventTurnStart), 1)
	assert.Empty(t, pub.named(eventbus.EventTurnEnd))

	d.HandleTurnAdvanced(ctx, "tok1", "tok-elsewhere", 2, 2, false)
	assert.Len(t, pub.named(eventbus.EventTurnEnd), 1)
}

func TestDispatcherRemoteEventDedup(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	echo := &recordingHandler{}
	d.RegisterHandler("echo", echo)

	doc := squareRegionDoc("r1", document.Behavior{ID: "b1", Type: "echo"})
	require.NoError(t, d.HandleRegionCreated(ctx, doc))
	activations := len(echo.events)

	// Своё же событие, отражённое обратно, не доставляется второй раз.
	own := eventbus.NewEvent(eventbus.EventTokenEnter, "u1", "scene-1", "r1", nil)
	d.HandleRemoteEvent(ctx, own)
	assert.Len(t, echo.events, activations)

	// Чужая сцена игнорируется.
	foreignScene := eventbus.NewEvent(eventbus.EventTokenEnter, "u2", "scene-other", "r1", nil)
	d.HandleRemoteEvent(ctx, foreignScene)
	assert.Len(t, echo.events, activations)

	// Событие другого участника доставляется поведениям.
	remote := eventbus.NewEvent(eventbus.EventTokenEnter, "u2", "scene-1", "r1", nil)
	d.HandleRemoteEvent(ctx, remote)
	require.Len(t, echo.events, activations+1)
	assert.Equal(t, remote.EventID, echo.events[activations].EventID)

	// Неизвестный регион — молча в лог, без паники.
	unknown := eventbus.NewEvent(eventbus.EventTokenEnter, "u2", "scene-1", "ghost", nil)
	d.HandleRemoteEvent(ctx, unknown)
	assert.Len(t, echo.events, activations+1)
}

func TestDispatcherUnknownToken(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("r1")))

	err := d.HandleTokenMoved(ctx, "ghost", []region.Waypoint{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.Error(t, err)
}

// Пустой путь перемещения приходит только из сломанного зеркалируемого
// события; он отклоняется ошибкой, а не паникой.
func TestDispatcherMoveWithoutWaypoints(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	require.NoError(t, d.HandleRegionCreated(ctx, squareRegionDoc("r1")))
	require.NoError(t, d.UpsertToken(ctx, document.TokenDocument{ID: "tok1", X: 50, Y: 50}))

	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, d.HandleTokenMoved(ctx, "tok1", nil), &cfgErr)

	tok, ok := d.Token("tok1")
	require.True(t, ok)
	assert.Equal(t, 50.0, tok.X, "position must be unchanged")
}

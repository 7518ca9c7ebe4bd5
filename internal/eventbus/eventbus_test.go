package eventbus

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFillsEnvelope(t *testing.T) {
	ev := NewEvent(EventTokenEnter, "u1", "scene-1", "r1", nil)
	assert.NotEmpty(t, ev.EventID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.NotNil(t, ev.Data, "nil data is replaced with an empty map")
	assert.Equal(t, "scene-1", ev.SceneID)
	assert.Equal(t, "r1", ev.RegionID)

	other := NewEvent(EventTokenEnter, "u1", "scene-1", "r1", nil)
	assert.NotEqual(t, ev.EventID, other.EventID)
}

func TestPublishRejectsIncompleteEvent(t *testing.T) {
	bus := NewEventBus([]string{"localhost:9092"})
	defer bus.Close()

	// Валидация срабатывает до записи в Kafka, брокер не нужен.
	err := bus.Publish(context.Background(), TopicRegionEvents, Event{Name: EventTokenEnter})
	require.Error(t, err)

	err = bus.Publish(context.Background(), TopicRegionEvents, Event{EventID: "e1", SceneID: "s1"})
	require.Error(t, err)
}

func TestNewEventBusCreatesAllWriters(t *testing.T) {
	bus := NewEventBus([]string{"localhost:9092"})
	defer bus.Close()

	for _, topic := range []string{TopicRegionEvents, TopicDocumentEvents, TopicCombatEvents} {
		assert.Contains(t, bus.writers, topic)
	}
}

func TestSubscribePollFrequencyParsing(t *testing.T) {
	// Некорректное значение окружения не должно ломать создание шины.
	os.Setenv("KAFKA_POLL_FREQUENCY_MS", "not-a-number")
	defer os.Unsetenv("KAFKA_POLL_FREQUENCY_MS")

	bus := NewEventBus([]string{"localhost:9092"})
	defer bus.Close()
	assert.NotNil(t, bus)
}

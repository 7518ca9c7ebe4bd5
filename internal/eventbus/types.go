package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope mirrored to other session participants. User is the
// originating participant; receivers drop events whose User matches their
// own, since the origin already dispatched locally.
type Event struct {
	EventID   string                 `json:"event_id"`
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	User      string                 `json:"user"`
	SceneID   string                 `json:"scene_id"`
	RegionID  string                 `json:"region_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

func NewEvent(name, user, sceneID, regionID string, data map[string]interface{}) Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return Event{
		EventID:   uuid.NewString(),
		Name:      name,
		Timestamp: time.Now().UTC(),
		User:      user,
		SceneID:   sceneID,
		RegionID:  regionID,
		Data:      data,
	}
}

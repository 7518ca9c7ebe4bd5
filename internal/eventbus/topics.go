package eventbus

const (
	TopicRegionEvents   = "region_events"
	TopicDocumentEvents = "document_events"
	TopicCombatEvents   = "combat_events"
)

// Region event names, the fixed enumeration dispatched to behaviors.
const (
	EventTokenEnter          = "tokenEnter"
	EventTokenExit           = "tokenExit"
	EventRegionBoundary      = "regionBoundary"
	EventBehaviorActivated   = "behaviorActivated"
	EventBehaviorDeactivated = "behaviorDeactivated"
	EventBehaviorViewed      = "behaviorViewed"
	EventBehaviorUnviewed    = "behaviorUnviewed"
	EventRoundStart          = "roundStart"
	EventRoundEnd            = "roundEnd"
	EventTurnStart           = "turnStart"
	EventTurnEnd             = "turnEnd"
)

// Document event types carried on TopicDocumentEvents.
const (
	TypeRegionCreated   = "region.created"
	TypeRegionUpdated   = "region.updated"
	TypeRegionDeleted   = "region.deleted"
	TypeTokenMoved      = "token.moved"
	TypeBehaviorToggled = "behavior.toggled"
)

// Combat tracker event types carried on TopicCombatEvents.
const (
	TypeRoundAdvanced = "round.advanced"
	TypeTurnAdvanced  = "turn.advanced"
)

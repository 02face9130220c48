package events

import "time"

// Event type codes published on the bus.
const (
	TypeTurnCompleted    = "assistant.turn_completed"
	TypeSessionEscalated = "assistant.session_escalated"
)

// NewTurnCompletedEvent records the outcome of one conversational turn.
func NewTurnCompletedEvent(sessionId, userId, intent, stage, replyType string, productCount int, latencyMs int64) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":    sessionId,
			"user_id":       userId,
			"intent":        intent,
			"stage":         stage,
			"reply_type":    replyType,
			"product_count": productCount,
			"latency_ms":    latencyMs,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionEscalatedEvent marks a turn that should reach a human agent.
func NewSessionEscalatedEvent(sessionId, userId, reason string) Event {
	return BaseEvent{
		Type: TypeSessionEscalated,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

package service

import (
	"context"
	"fmt"
	"sync"

	"shop-assistant-be/internal/pkg/logger"
	"shop-assistant-be/pkg/events"
	pktNats "shop-assistant-be/pkg/nats"
)

type IAnalyticsService interface {
	Start()
	Snapshot() AnalyticsSnapshot
}

// AnalyticsSnapshot is a point-in-time view of the aggregated counters.
type AnalyticsSnapshot struct {
	Turns       int64            `json:"turns"`
	Escalations int64            `json:"escalations"`
	ByIntent    map[string]int64 `json:"by_intent"`
	ByReplyType map[string]int64 `json:"by_reply_type"`
}

// analyticsService consumes assistant events off the NATS stream with a
// durable consumer and aggregates them into in-memory counters. It sits
// on the far side of the bus from consumerService, which publishes there.
type analyticsService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger

	mu          sync.Mutex
	turns       int64
	escalations int64
	byIntent    map[string]int64
	byReplyType map[string]int64
}

func NewAnalyticsService(sub *pktNats.Subscriber, log logger.ILogger) IAnalyticsService {
	return &analyticsService{
		subscriber:  sub,
		logger:      log,
		byIntent:    make(map[string]int64),
		byReplyType: make(map[string]int64),
	}
}

// Start attaches the durable consumer. A nil subscriber (NATS down at
// boot) leaves the service idle rather than failing the process.
func (s *analyticsService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("AnalyticsService", "No NATS subscriber available, analytics disabled", nil)
		return
	}

	err := s.subscriber.Subscribe("events.assistant.>", "assistant-analytics", s.handleEvent)
	if err != nil {
		s.logger.Error("AnalyticsService", "Failed to start analytics subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("AnalyticsService", "Analytics service started, listening to events.assistant.>", nil)
}

func (s *analyticsService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.EventType() {
	case events.TypeTurnCompleted:
		s.turns++
		if intent, ok := payload["intent"].(string); ok && intent != "" {
			s.byIntent[intent]++
		}
		if replyType, ok := payload["reply_type"].(string); ok && replyType != "" {
			s.byReplyType[replyType]++
		}

	case events.TypeSessionEscalated:
		s.escalations++
		s.logger.Warn("AnalyticsService", "Session escalated", map[string]interface{}{
			"session_id": payload["session_id"],
			"reason":     payload["reason"],
		})

	default:
		s.logger.Debug("AnalyticsService", fmt.Sprintf("Ignoring event type: %s", event.EventType()), nil)
	}

	return nil
}

func (s *analyticsService) Snapshot() AnalyticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := AnalyticsSnapshot{
		Turns:       s.turns,
		Escalations: s.escalations,
		ByIntent:    make(map[string]int64, len(s.byIntent)),
		ByReplyType: make(map[string]int64, len(s.byReplyType)),
	}
	for k, v := range s.byIntent {
		snap.ByIntent[k] = v
	}
	for k, v := range s.byReplyType {
		snap.ByReplyType[k] = v
	}
	return snap
}

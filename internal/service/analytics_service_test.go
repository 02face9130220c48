package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/internal/pkg/logger"
	"shop-assistant-be/pkg/events"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
func (nopLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }

func TestAnalyticsServiceAggregatesTurnEvents(t *testing.T) {
	svc := NewAnalyticsService(nil, nopLogger{}).(*analyticsService)

	turns := []events.Event{
		events.NewTurnCompletedEvent("s1", "u1", "product_search", "done", "results", 5, 120),
		events.NewTurnCompletedEvent("s1", "u1", "refinement_reply", "done", "question", 0, 80),
		events.NewTurnCompletedEvent("s2", "u2", "product_search", "done", "results", 3, 95),
	}
	for _, e := range turns {
		assert.NoError(t, svc.handleEvent(context.Background(), e))
	}
	assert.NoError(t, svc.handleEvent(context.Background(),
		events.NewSessionEscalatedEvent("s2", "u2", "complaint")))

	snap := svc.Snapshot()
	assert.Equal(t, int64(3), snap.Turns)
	assert.Equal(t, int64(1), snap.Escalations)
	assert.Equal(t, int64(2), snap.ByIntent["product_search"])
	assert.Equal(t, int64(1), snap.ByIntent["refinement_reply"])
	assert.Equal(t, int64(2), snap.ByReplyType["results"])
}

func TestAnalyticsServiceIgnoresUnknownEvents(t *testing.T) {
	svc := NewAnalyticsService(nil, nopLogger{}).(*analyticsService)

	err := svc.handleEvent(context.Background(), events.BaseEvent{
		Type: "assistant.unknown",
		Data: map[string]interface{}{},
	})

	assert.NoError(t, err)
	snap := svc.Snapshot()
	assert.Zero(t, snap.Turns)
	assert.Zero(t, snap.Escalations)
}

func TestAnalyticsServiceStartWithoutSubscriberIsNoop(t *testing.T) {
	svc := NewAnalyticsService(nil, nopLogger{})

	assert.NotPanics(t, svc.Start)
}

package service

import (
	"context"
	"encoding/json"
	"log"

	"shop-assistant-be/internal/dto"
	"shop-assistant-be/pkg/events"
	"shop-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the in-process turn topic and forwards each
// completed turn to the NATS analytics stream. A nil publisher keeps the
// consumer running in log-only mode.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	publisher *nats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	publisher *nats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		publisher: publisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTurnMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Turn completed session=%s intent=%s reply=%s products=%d latency=%dms",
		payload.ChatSessionId, payload.Intent, payload.ReplyType, payload.ProductCount, payload.LatencyMs)

	if cs.publisher == nil {
		msg.Ack()
		return
	}

	event := events.NewTurnCompletedEvent(
		payload.ChatSessionId.String(),
		payload.UserId.String(),
		payload.Intent,
		payload.Stage,
		payload.ReplyType,
		payload.ProductCount,
		payload.LatencyMs,
	)
	if err := cs.publisher.Publish(ctx, event); err != nil {
		log.Printf("[ERROR] Failed to publish turn event: %v", err)
		msg.Nack() // Nack for retriable errors
		return
	}

	if payload.Escalated {
		escalation := events.NewSessionEscalatedEvent(
			payload.ChatSessionId.String(),
			payload.UserId.String(),
			"complaint",
		)
		if err := cs.publisher.Publish(ctx, escalation); err != nil {
			log.Printf("[ERROR] Failed to publish escalation event: %v", err)
		}
	}

	msg.Ack()
}

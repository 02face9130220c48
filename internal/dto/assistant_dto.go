package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	ChannelTag string `json:"channel_tag,omitempty" validate:"omitempty,oneof=web widget whatsapp"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	ChannelTag string     `json:"channel_tag"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	ReplyType string    `json:"reply_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SendTurnRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required,min=1,max=2000"`
}

type ProductDTO struct {
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Brand     string            `json:"brand"`
	Category  string            `json:"category"`
	Price     float64           `json:"price"`
	Stock     int               `json:"stock"`
	Specs     map[string]string `json:"specs,omitempty"`
	Relevance float64           `json:"relevance"`
}

type SendTurnResponse struct {
	ChatSessionId uuid.UUID    `json:"chat_session_id"`
	Type          string       `json:"type"` // question, results or answer
	Text          string       `json:"text"`
	Products      []ProductDTO `json:"products,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// PublishTurnMessage is the payload sent to the analytics consumer after a turn commits.
type PublishTurnMessage struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	UserId        uuid.UUID `json:"user_id"`
	Intent        string    `json:"intent"`
	Stage         string    `json:"stage"`
	ReplyType     string    `json:"reply_type"`
	ProductCount  int       `json:"product_count"`
	LatencyMs     int64     `json:"latency_ms"`
	Escalated     bool      `json:"escalated"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"shop-assistant-be/internal/constant"
	"shop-assistant-be/internal/dto"
	"shop-assistant-be/internal/entity"
	"shop-assistant-be/internal/pkg/mailer"
	"shop-assistant-be/internal/repository/contract"
	"shop-assistant-be/internal/repository/memory"
	"shop-assistant-be/internal/repository/specification"
	"shop-assistant-be/internal/repository/unitofwork"
	"shop-assistant-be/internal/websocket"
	"shop-assistant-be/pkg/assistant/intent"
	"shop-assistant-be/pkg/assistant/pipeline"
	"shop-assistant-be/pkg/assistant/quality"
	"shop-assistant-be/pkg/assistant/refine"
	"shop-assistant-be/pkg/assistant/search"
	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/embedding"
	"shop-assistant-be/pkg/llm"
	"shop-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IAssistantService defines the conversational assistant interface
type IAssistantService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

// assistantService coordinates persistence, the turn pipeline and the
// post-turn side channels (analytics bus, websocket push, escalation mail).
type assistantService struct {
	uowFactory   unitofwork.RepositoryFactory
	sessionRepo  *memory.SessionRepository
	executor     *pipeline.Executor
	pubSub       *gochannel.GoChannel
	turnTopic    string
	hub          *websocket.Hub
	emailService mailer.IEmailService
	alertEmail   string
	turnLogger   *log.Logger
}

// NewAssistantService wires the assistant pipeline from its providers.
const oracleTimeout = 15 * time.Second

func NewAssistantService(
	uowFactory unitofwork.RepositoryFactory,
	productRepo contract.ProductRepository,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	sessionRepo *memory.SessionRepository,
	pubSub *gochannel.GoChannel,
	turnTopic string,
	hub *websocket.Hub,
	emailService mailer.IEmailService,
	alertEmail string,
) IAssistantService {

	turnLogger := initTurnLogger()

	oracle := llm.NewOracle(llmProvider, oracleTimeout, turnLogger)
	classifier := intent.NewClassifier(oracle, turnLogger)
	analyzer := understanding.NewAnalyzer(oracle, turnLogger)
	index := NewProductIndex(productRepo)
	orchestrator := search.NewOrchestrator(index, embeddingProvider, turnLogger)
	gate := quality.NewGate(oracle, turnLogger)
	machine := refine.NewMachine(turnLogger)
	executor := pipeline.NewExecutor(classifier, analyzer, orchestrator, gate, machine, sessionRepo, turnLogger)

	return &assistantService{
		uowFactory:   uowFactory,
		sessionRepo:  sessionRepo,
		executor:     executor,
		pubSub:       pubSub,
		turnTopic:    turnTopic,
		hub:          hub,
		emailService: emailService,
		alertEmail:   alertEmail,
		turnLogger:   turnLogger,
	}
}

func initTurnLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[ASSISTANT] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession opens a new conversation seeded with the greeting.
func (as *assistantService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	channelTag := "web"
	if request != nil && request.ChannelTag != "" {
		channelTag = request.ChannelTag
	}

	chatSession := entity.ChatSession{
		Id:         uuid.New(),
		UserId:     userId,
		Title:      constant.ChatSessionDefaultTitle,
		ChannelTag: channelTag,
		CreatedAt:  now,
	}

	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          constant.ChatMessageGreeting,
		Role:          constant.ChatMessageRoleModel,
		ReplyType:     pipeline.ReplyAnswer,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves the caller's sessions, newest first.
func (as *assistantService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:         s.Id,
			Title:      s.Title,
			ChannelTag: s.ChannelTag,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves the transcript of one session.
func (as *assistantService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			ReplyType: msg.ReplyType,
			CreatedAt: msg.CreatedAt,
		})
	}

	return resp, nil
}

// SendTurn runs one conversational turn end to end: persist the user
// message, execute the pipeline, persist the reply and fan out the
// post-turn notifications.
func (as *assistantService) SendTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	existing, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: constant.HistoryWindowSize},
	)
	if err != nil {
		return nil, err
	}
	recent := toHistory(existing)

	// Only the greeting exists before the first user message.
	updateTitle := len(existing) == 1
	now := time.Now()

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          request.Message,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: request.ChatSessionId,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}

	reply, pctx := as.executor.HandleTurn(ctx, &pipeline.TurnRequest{
		SessionID:  request.ChatSessionId.String(),
		UserID:     userId.String(),
		RawText:    request.Message,
		ChannelTag: chatSession.ChannelTag,
		Recent:     recent,
	})

	modelMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          reply.Text,
		Role:          constant.ChatMessageRoleModel,
		ReplyType:     reply.Type,
		ChatSessionId: request.ChatSessionId,
		CreatedAt:     now.Add(1 * time.Millisecond),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &modelMessage); err != nil {
		return nil, err
	}

	if updateTitle {
		chatSession.Title = sessionTitle(request.Message)
		chatSession.UpdatedAt = &now
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	response := &dto.SendTurnResponse{
		ChatSessionId: request.ChatSessionId,
		Type:          reply.Type,
		Text:          reply.Text,
		Products:      toProductDTOs(reply.Products),
		CreatedAt:     modelMessage.CreatedAt,
	}

	as.afterTurn(userId, chatSession, reply, pctx, response)

	return response, nil
}

// DeleteSession removes a session, its transcript and its in-flight
// refinement state.
func (as *assistantService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}

	as.sessionRepo.Evict(request.ChatSessionId.String())

	return uow.Commit()
}

// afterTurn runs the side channels that must not block or fail the turn.
func (as *assistantService) afterTurn(
	userId uuid.UUID,
	chatSession *entity.ChatSession,
	reply *pipeline.Reply,
	pctx *pipeline.PipelineContext,
	response *dto.SendTurnResponse,
) {
	intentCode := ""
	if pctx.Intent != nil {
		intentCode = pctx.Intent.Intent
	}

	payload := dto.PublishTurnMessage{
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Intent:        intentCode,
		Stage:         pctx.Stage,
		ReplyType:     reply.Type,
		ProductCount:  len(reply.Products),
		LatencyMs:     time.Since(pctx.StartedAt).Milliseconds(),
		Escalated:     reply.Escalate,
	}
	if data, err := json.Marshal(payload); err == nil {
		msg := message.NewMessage(watermill.NewUUID(), data)
		if err := as.pubSub.Publish(as.turnTopic, msg); err != nil {
			as.turnLogger.Printf("[SERVICE] session=%s turn publish failed: %v", chatSession.Id, err)
		}
	}

	if as.hub != nil {
		as.hub.Send(userId, "assistant.turn", response)
	}

	if reply.Escalate && as.emailService != nil && as.alertEmail != "" {
		sessionId := chatSession.Id.String()
		userIdStr := userId.String()
		go func() {
			if err := as.emailService.SendEscalationAlert(as.alertEmail, sessionId, userIdStr, response.Text); err != nil {
				as.turnLogger.Printf("[SERVICE] session=%s escalation mail failed: %v", sessionId, err)
			}
		}()
	}
}

// toHistory converts persisted messages (newest first) into the
// provider-agnostic format, oldest first.
func toHistory(messages []*entity.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		role := "user"
		if messages[i].Role == constant.ChatMessageRoleModel {
			role = "assistant"
		}
		history = append(history, llm.Message{
			Role:    role,
			Content: messages[i].Chat,
		})
	}
	return history
}

func sessionTitle(firstMessage string) string {
	if len(firstMessage) <= constant.SessionTitleMaxLength {
		return firstMessage
	}
	return firstMessage[:constant.SessionTitleMaxLength] + "..."
}

func toProductDTOs(candidates []store.Candidate) []dto.ProductDTO {
	products := make([]dto.ProductDTO, 0, len(candidates))
	for _, c := range candidates {
		products = append(products, dto.ProductDTO{
			SKU:       c.ID,
			Name:      c.Name,
			Brand:     c.Brand,
			Category:  c.Category,
			Price:     c.Price,
			Stock:     c.Stock,
			Specs:     c.Specs,
			Relevance: c.RelevanceScore,
		})
	}
	return products
}

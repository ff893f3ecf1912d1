package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/config"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
)

const (
	assistantSystemPrompt = "You are a helpful assistant for Fitora. " +
		"You can only answer questions about meal planning, nutrition, fitness, and health. " +
		"If the user asks about unrelated topics, politely decline and redirect them " +
		"to ask about fitness and nutrition topics."
	titleSystemPrompt = "Generate a short, descriptive title (maximum 5 words) for a conversation " +
		"that starts with the following message. Only return the title, nothing else."

	FallbackReply      = "I'm having trouble connecting right now. Please try again in a moment."
	finishReasonError  = "error"
	titleMaxChars      = 50
	titleFallbackWords = 5
	defaultHistorySize = 20
)

// ChatModel is the completion provider used by the chat pipeline.
type ChatModel interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error)
}

type ChatService struct {
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	history     *HistoryStore
	assembler   *ContextAssembler
	model       ChatModel
	modelName   string
	cfg         config.ChatConfig
	log         *logger.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

type ProcessMessageInput struct {
	UserID    uint
	Message   string
	SessionID *uint
	ForceNew  bool
}

type ProcessMessageResult struct {
	Session          *model.Session `json:"session"`
	UserMessage      *model.Message `json:"user_message"`
	AssistantMessage *model.Message `json:"ai_response"`
	IsNewSession     bool           `json:"is_new_session"`
}

type SessionDetail struct {
	Session     *model.Session  `json:"session"`
	Messages    []model.Message `json:"messages"`
	TotalTokens int             `json:"total_tokens"`
}

// modelReply is the outcome of the retried model call.
type modelReply struct {
	content      string
	usage        ai.Usage
	modelUsed    string
	finishReason string
	responseTime time.Duration
	failed       bool
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	history *HistoryStore,
	assembler *ContextAssembler,
	chatModel ChatModel,
	modelName string,
	cfg config.ChatConfig,
	log *logger.Logger,
) *ChatService {
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = defaultHistorySize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		history:     history,
		assembler:   assembler,
		model:       chatModel,
		modelName:   modelName,
		cfg:         cfg,
		log:         log.With("component", "app.ChatService"),
		sleep:       sleepContext,
	}
}

// ProcessMessage runs one full chat turn: pick the session, build the prompt,
// call the model and persist both turns. A failing provider never fails the
// request; the user gets a fixed apology instead.
func (s *ChatService) ProcessMessage(ctx context.Context, input ProcessMessageInput) (*ProcessMessageResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if s.cfg.MaxMessageLength > 0 && utf8.RuneCountInString(content) > s.cfg.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	session, isNew, err := s.resolveSession(ctx, input, content)
	if err != nil {
		return nil, err
	}

	recent, err := s.history.GetRecent(ctx, session.ID, s.cfg.MaxHistoryMessages)
	if err != nil {
		return nil, err
	}
	prompt := s.assembler.FormatForModel(recent)
	prompt = append(prompt, ai.ChatMessage{Role: RoleUser, Content: content})

	tokenCount := s.assembler.CountTokens(prompt)
	if budget := s.assembler.MaxContextTokens(); tokenCount > budget {
		before := len(prompt)
		prompt = s.assembler.TrimToBudget(prompt, budget)
		s.log.Info("prompt trimmed to fit context",
			"session_id", session.ID,
			"tokens_before", tokenCount,
			"budget", budget,
			"messages_before", before,
			"messages_after", len(prompt),
		)
	}

	reply := s.generateReply(ctx, prompt)

	userMessage, err := s.history.Append(ctx, session.ID, model.AuthorUser, content, input.UserID, nil)
	if err != nil {
		return nil, err
	}
	meta := &UsageMetadata{Failed: true}
	if !reply.failed {
		meta = &UsageMetadata{
			InputTokens:    reply.usage.PromptTokens,
			OutputTokens:   reply.usage.CompletionTokens,
			TotalTokens:    reply.usage.TotalTokens,
			ResponseTimeMS: int(reply.responseTime.Milliseconds()),
			ModelUsed:      reply.modelUsed,
		}
	}
	assistantMessage, err := s.history.Append(ctx, session.ID, model.AuthorAI, reply.content, input.UserID, meta)
	if err != nil {
		return nil, err
	}

	s.log.Info("chat turn completed",
		"user_id", input.UserID,
		"session_id", session.ID,
		"is_new_session", isNew,
		"model", reply.modelUsed,
		"input_tokens", reply.usage.PromptTokens,
		"output_tokens", reply.usage.CompletionTokens,
		"estimated_cost_usd", EstimateCost(reply.modelUsed, reply.usage.PromptTokens, reply.usage.CompletionTokens),
		"response_time_ms", reply.responseTime.Milliseconds(),
		"finish_reason", reply.finishReason,
		"failed", reply.failed,
	)

	return &ProcessMessageResult{
		Session:          session,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		IsNewSession:     isNew,
	}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, input ProcessMessageInput, content string) (*model.Session, bool, error) {
	if input.ForceNew {
		session, err := s.createSession(ctx, input.UserID, content)
		return session, true, err
	}

	if input.SessionID != nil {
		session, err := s.sessionRepo.GetByIDAndUserID(ctx, *input.SessionID, input.UserID)
		if err != nil {
			return nil, false, err
		}
		if session == nil {
			return nil, false, ErrSessionNotFound
		}
		return session, false, nil
	}

	latest, err := s.messageRepo.LatestByUserID(ctx, input.UserID)
	if err != nil {
		return nil, false, err
	}
	if latest != nil {
		session, err := s.sessionRepo.GetByIDAndUserID(ctx, latest.SessionID, input.UserID)
		if err != nil {
			return nil, false, err
		}
		if session != nil {
			return session, false, nil
		}
	}

	session, err := s.createSession(ctx, input.UserID, content)
	return session, true, err
}

func (s *ChatService) createSession(ctx context.Context, userID uint, firstMessage string) (*model.Session, error) {
	session := &model.Session{
		UserID: userID,
		Title:  s.GenerateTitle(ctx, firstMessage),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("chat session created", "user_id", userID, "session_id", session.ID)
	return session, nil
}

func (s *ChatService) generateReply(ctx context.Context, prompt []ai.ChatMessage) modelReply {
	messages := make([]ai.ChatMessage, 0, len(prompt)+1)
	messages = append(messages, ai.ChatMessage{Role: RoleSystem, Content: assistantSystemPrompt})
	messages = append(messages, prompt...)

	req := ai.CompletionRequest{
		Model:       s.modelName,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.ResponseMaxTokens,
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		out, err := s.model.Complete(ctx, req)
		if err == nil {
			modelUsed := out.Model
			if modelUsed == "" {
				modelUsed = s.modelName
			}
			return modelReply{
				content:      out.Content,
				usage:        out.Usage,
				modelUsed:    modelUsed,
				finishReason: out.FinishReason,
				responseTime: time.Since(start),
			}
		}
		lastErr = err
		s.log.Warn("model call failed", "attempt", attempt, "max_attempts", s.cfg.MaxRetries, "error", err)

		if attempt == s.cfg.MaxRetries {
			break
		}
		if err := s.sleep(ctx, time.Duration(attempt)*s.cfg.RetryBaseDelay()); err != nil {
			lastErr = err
			break
		}
	}

	s.log.Error("model unavailable, returning fallback reply", "error", lastErr)
	return modelReply{
		content:      FallbackReply,
		modelUsed:    s.modelName,
		finishReason: finishReasonError,
		responseTime: time.Since(start),
		failed:       true,
	}
}

// GenerateTitle asks the model for a short session title and falls back to
// the first words of the message.
func (s *ChatService) GenerateTitle(ctx context.Context, firstMessage string) string {
	out, err := s.model.Complete(ctx, ai.CompletionRequest{
		Model: s.modelName,
		Messages: []ai.ChatMessage{
			{Role: RoleSystem, Content: titleSystemPrompt},
			{Role: RoleUser, Content: firstMessage},
		},
		Temperature: 0.5,
		MaxTokens:   20,
	})
	if err == nil {
		if title := strings.TrimSpace(out.Content); title != "" {
			return truncateRunes(title, titleMaxChars)
		}
	} else {
		s.log.Warn("title generation failed", "error", err)
	}
	return fallbackTitle(firstMessage)
}

func fallbackTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > titleFallbackWords {
		words = words[:titleFallbackWords]
	}
	title := strings.Join(words, " ")
	if len(words) == titleFallbackWords {
		title += "..."
	}
	return truncateRunes(title, 255)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *ChatService) ListSessions(ctx context.Context, userID uint) ([]model.SessionSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListSummariesByUserID(ctx, userID)
}

func (s *ChatService) GetSessionDetail(ctx context.Context, userID, sessionID uint) (*SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, m := range messages {
		total += m.TotalTokens
	}
	return &SessionDetail{Session: session, Messages: messages, TotalTokens: total}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.MaxHistoryMessages
	}
	return s.history.GetRecent(ctx, sessionID, limit)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteWithMessages(ctx, sessionID, userID); err != nil {
		return err
	}
	s.history.InvalidateSession(ctx, sessionID)
	s.log.Info("chat session deleted", "user_id", userID, "session_id", sessionID)
	return nil
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID uint) (*model.Session, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

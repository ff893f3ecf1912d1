package app

import (
	"context"
	"time"

	"fitora-backend/internal/cache"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
)

// UsageMetadata is recorded on assistant turns only.
type UsageMetadata struct {
	InputTokens    int
	OutputTokens   int
	TotalTokens    int
	ResponseTimeMS int
	ModelUsed      string
	Failed         bool
}

// HistoryStore reads recent session history through the cache and appends
// turns to the database. The database is authoritative.
//
// The cache always holds the newest window messages of a session (or all of
// them when the session is shorter), whatever limit the caller asked for.
type HistoryStore struct {
	messageRepo *repository.MessageRepository
	cache       cache.HistoryCache
	window      int
	log         *logger.Logger
	now         func() time.Time
}

func NewHistoryStore(messageRepo *repository.MessageRepository, historyCache cache.HistoryCache, window int, log *logger.Logger) *HistoryStore {
	if historyCache == nil {
		historyCache = cache.NoopHistoryCache{}
	}
	if window <= 0 {
		window = defaultHistorySize
	}
	return &HistoryStore{
		messageRepo: messageRepo,
		cache:       historyCache,
		window:      window,
		log:         log.With("component", "app.HistoryStore"),
		now:         time.Now,
	}
}

// GetRecent returns at most limit messages in chronological order.
func (s *HistoryStore) GetRecent(ctx context.Context, sessionID uint, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}

	// A cached window cannot answer for more than window messages.
	if limit <= s.window {
		if cached, ok := s.cache.Get(ctx, sessionID); ok {
			s.cache.ExtendTTL(ctx, sessionID)
			s.log.Debug("history cache hit", "session_id", sessionID, "count", len(cached))
			return tail(cached, limit), nil
		}
	}

	fetch := limit
	if fetch < s.window {
		fetch = s.window
	}
	messages, err := s.messageRepo.ListRecentBySessionID(ctx, sessionID, fetch)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, sessionID, tail(messages, s.window))
	s.log.Debug("history loaded from database", "session_id", sessionID, "count", len(messages))
	return tail(messages, limit), nil
}

func tail(messages []model.Message, n int) []model.Message {
	if len(messages) > n {
		return messages[len(messages)-n:]
	}
	return messages
}

// Append persists one turn and drops the cached window for the session.
func (s *HistoryStore) Append(ctx context.Context, sessionID uint, author, content string, userID uint, meta *UsageMetadata) (*model.Message, error) {
	message := &model.Message{
		SessionID: sessionID,
		UserID:    userID,
		Author:    author,
		Content:   content,
		CreatedAt: s.now(),
	}
	if meta != nil {
		message.InputTokens = meta.InputTokens
		message.OutputTokens = meta.OutputTokens
		message.TotalTokens = meta.TotalTokens
		message.ResponseTimeMS = meta.ResponseTimeMS
		message.ModelUsed = meta.ModelUsed
		message.Failed = meta.Failed
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, sessionID)
	return message, nil
}

func (s *HistoryStore) InvalidateSession(ctx context.Context, sessionID uint) {
	s.cache.Delete(ctx, sessionID)
}

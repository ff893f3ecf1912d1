package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fitora-backend/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) GetByIDAndUserID(ctx context.Context, sessionID, userID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// ListSummariesByUserID returns the user's sessions newest first, with message
// counts and the time of the last message.
func (r *SessionRepository) ListSummariesByUserID(ctx context.Context, userID uint) ([]model.SessionSummary, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	if len(sessions) == 0 {
		return []model.SessionSummary{}, nil
	}

	ids := make([]uint, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}

	type stat struct {
		SessionID     uint
		MessageCount  int64
		LastMessageAt aggregateTime
	}
	var stats []stat
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("session_id, COUNT(*) AS message_count, MAX(created_at) AS last_message_at").
		Where("session_id IN ?", ids).
		Group("session_id").
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("aggregate session messages failed: %w", err)
	}
	byID := make(map[uint]stat, len(stats))
	for _, s := range stats {
		byID[s.SessionID] = s
	}

	out := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summary := model.SessionSummary{Session: s}
		if st, ok := byID[s.ID]; ok {
			summary.MessageCount = st.MessageCount
			summary.LastMessageAt = st.LastMessageAt.ptr()
		}
		out = append(out, summary)
	}
	return out, nil
}

// DeleteWithMessages removes the session and every message that belongs to it.
func (r *SessionRepository) DeleteWithMessages(ctx context.Context, sessionID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&model.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fitora-backend/internal/model"
)

type DailyLimitRepository struct {
	db *gorm.DB
}

func NewDailyLimitRepository(db *gorm.DB) *DailyLimitRepository {
	return &DailyLimitRepository{db: db}
}

func (r *DailyLimitRepository) GetByUserID(ctx context.Context, userID uint) (*model.DailyLimit, error) {
	var limit model.DailyLimit
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&limit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily limit failed: %w", err)
	}
	return &limit, nil
}

// Upsert inserts or replaces the user's nutrient list. created reports whether
// a new row was inserted.
func (r *DailyLimitRepository) Upsert(ctx context.Context, userID uint, nutrients []model.NutrientNorm) (*model.DailyLimit, bool, error) {
	existing, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	limit := &model.DailyLimit{UserID: userID, Nutrients: nutrients}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nutrients", "updated_at"}),
	}).Create(limit).Error; err != nil {
		return nil, false, fmt.Errorf("upsert daily limit failed: %w", err)
	}

	saved, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return saved, existing == nil, nil
}

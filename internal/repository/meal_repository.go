package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fitora-backend/internal/model"
)

type MealRepository struct {
	db *gorm.DB
}

func NewMealRepository(db *gorm.DB) *MealRepository {
	return &MealRepository{db: db}
}

func (r *MealRepository) Create(ctx context.Context, meal *model.Meal) error {
	if err := r.db.WithContext(ctx).Create(meal).Error; err != nil {
		return fmt.Errorf("create meal failed: %w", err)
	}
	return nil
}

func (r *MealRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.Meal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var meals []model.Meal
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&meals).Error; err != nil {
		return nil, fmt.Errorf("list meals failed: %w", err)
	}
	return meals, nil
}

// ListByUserIDBetween returns the user's meals created in [from, to), oldest first.
func (r *MealRepository) ListByUserIDBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.Meal, error) {
	var meals []model.Meal
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Order("created_at ASC").
		Order("id ASC").
		Find(&meals).Error; err != nil {
		return nil, fmt.Errorf("list meals by day failed: %w", err)
	}
	return meals, nil
}

func (r *MealRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Meal, error) {
	var meal model.Meal
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get meal failed: %w", err)
	}
	return &meal, nil
}

func (r *MealRepository) DeleteByIDAndUserID(ctx context.Context, id, userID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Meal{}).Error; err != nil {
		return fmt.Errorf("delete meal failed: %w", err)
	}
	return nil
}

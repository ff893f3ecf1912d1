package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fitora-backend/internal/model"
)

type DietologistRepository struct {
	db *gorm.DB
}

func NewDietologistRepository(db *gorm.DB) *DietologistRepository {
	return &DietologistRepository{db: db}
}

func (r *DietologistRepository) Create(ctx context.Context, d *model.Dietologist) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create dietologist failed: %w", err)
	}
	return nil
}

func (r *DietologistRepository) GetByPhone(ctx context.Context, phone string) (*model.Dietologist, error) {
	var d model.Dietologist
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query dietologist by phone failed: %w", err)
	}
	return &d, nil
}

func (r *DietologistRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Dietologist{}).Where("id = ?", id).Update("last_login_at", at).Error; err != nil {
		return fmt.Errorf("update dietologist last login failed: %w", err)
	}
	return nil
}

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create group failed: %w", err)
	}
	return nil
}

func (r *GroupRepository) Save(ctx context.Context, g *model.Group) error {
	if err := r.db.WithContext(ctx).Save(g).Error; err != nil {
		return fmt.Errorf("save group failed: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListByDietologistID(ctx context.Context, dietologistID uint) ([]model.Group, error) {
	var groups []model.Group
	if err := r.db.WithContext(ctx).Where("dietologist_id = ?", dietologistID).Order("created_at DESC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups failed: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) GetByIDAndDietologistID(ctx context.Context, id, dietologistID uint) (*model.Group, error) {
	var g model.Group
	if err := r.db.WithContext(ctx).Where("id = ? AND dietologist_id = ?", id, dietologistID).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group failed: %w", err)
	}
	return &g, nil
}

func (r *GroupRepository) GetByCode(ctx context.Context, code string) (*model.Group, error) {
	var g model.Group
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by code failed: %w", err)
	}
	return &g, nil
}

type ClientRequestRepository struct {
	db *gorm.DB
}

func NewClientRequestRepository(db *gorm.DB) *ClientRequestRepository {
	return &ClientRequestRepository{db: db}
}

func (r *ClientRequestRepository) Create(ctx context.Context, req *model.ClientRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create client request failed: %w", err)
	}
	return nil
}

func (r *ClientRequestRepository) Exists(ctx context.Context, userID, groupID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ClientRequest{}).Where("user_id = ? AND group_id = ?", userID, groupID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check client request failed: %w", err)
	}
	return count > 0, nil
}

// ListByDietologistID returns requests across the dietologist's groups, newest
// first, optionally filtered by status.
func (r *ClientRequestRepository) ListByDietologistID(ctx context.Context, dietologistID uint, status string) ([]model.ClientRequest, error) {
	q := r.db.WithContext(ctx).
		Model(&model.ClientRequest{}).
		Joins("JOIN diet_groups ON diet_groups.id = client_requests.group_id").
		Where("diet_groups.dietologist_id = ?", dietologistID)
	if status != "" {
		q = q.Where("client_requests.status = ?", status)
	}
	var requests []model.ClientRequest
	if err := q.Order("client_requests.requested_at DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list client requests failed: %w", err)
	}
	return requests, nil
}

func (r *ClientRequestRepository) GetByIDAndDietologistID(ctx context.Context, id, dietologistID uint) (*model.ClientRequest, error) {
	var req model.ClientRequest
	err := r.db.WithContext(ctx).
		Joins("JOIN diet_groups ON diet_groups.id = client_requests.group_id").
		Where("client_requests.id = ? AND diet_groups.dietologist_id = ?", id, dietologistID).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client request failed: %w", err)
	}
	return &req, nil
}

func (r *ClientRequestRepository) UpdateStatus(ctx context.Context, id uint, status string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.ClientRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"responded_at": at,
	}).Error; err != nil {
		return fmt.Errorf("update client request failed: %w", err)
	}
	return nil
}

func (r *ClientRequestRepository) ApprovedUserIDs(ctx context.Context, dietologistID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&model.ClientRequest{}).
		Joins("JOIN diet_groups ON diet_groups.id = client_requests.group_id").
		Where("diet_groups.dietologist_id = ? AND client_requests.status = ?", dietologistID, model.RequestApproved).
		Distinct("client_requests.user_id").
		Pluck("client_requests.user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list approved clients failed: %w", err)
	}
	return ids, nil
}

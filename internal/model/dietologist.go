package model

import "time"

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

type Dietologist struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PhoneNumber  string     `gorm:"size:15;not null;uniqueIndex" json:"phone_number"`
	FirstName    string     `gorm:"size:50;not null" json:"first_name"`
	LastName     string     `gorm:"size:50;not null" json:"last_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Group struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DietologistID uint      `gorm:"not null;index" json:"dietologist_id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Code          string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ClientRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_client_request_user_group" json:"user_id"`
	GroupID     uint       `gorm:"not null;uniqueIndex:idx_client_request_user_group;index" json:"group_id"`
	Status      string     `gorm:"size:20;not null;default:pending" json:"status"`
	RequestedAt time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at"`
}

// TableName avoids GROUPS, a reserved word in MySQL 8.
func (Group) TableName() string { return "diet_groups" }

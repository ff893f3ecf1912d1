package model

import (
	"time"

	"gorm.io/datatypes"
)

var MealTimes = []string{"breakfast", "lunch", "dinner", "snack"}

type Meal struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	ObjectName  string         `gorm:"size:500;not null;uniqueIndex" json:"object_name"`
	ContentType string         `gorm:"size:100;not null" json:"content_type"`
	Size        int64          `gorm:"not null" json:"size"`
	MealTime    string         `gorm:"size:20" json:"meal_time"`
	Foods       datatypes.JSON `json:"foods"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

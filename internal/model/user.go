package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

var (
	ActivenessLevels = []string{"sedentary", "lightly_active", "moderately_active", "very_active", "extremely_active"}
	Goals            = []string{"lose_weight", "gain_weight", "maintain_weight"}
	Diets            = []string{"artificial_intelligence", "balanced", "low_carbs", "keto", "high_protein", "low_fat"}
)

type User struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	PhoneNumber      *string                     `gorm:"size:15;uniqueIndex" json:"phone_number"`
	GoogleID         *string                     `gorm:"size:255;uniqueIndex" json:"-"`
	Email            *string                     `gorm:"size:254;uniqueIndex" json:"email"`
	FirstName        string                      `gorm:"size:50" json:"first_name"`
	LastName         string                      `gorm:"size:50" json:"last_name"`
	Gender           string                      `gorm:"size:10" json:"gender"`
	DateOfBirth      *time.Time                  `json:"date_of_birth"`
	CurrentHeight    *float64                    `json:"current_height"`
	CurrentWeight    *float64                    `json:"current_weight"`
	TargetWeight     *float64                    `json:"target_weight"`
	ActivenessLevel  string                      `gorm:"size:50" json:"activeness_level"`
	Goal             string                      `gorm:"size:50" json:"goal"`
	PreferredDiet    string                      `gorm:"size:50" json:"preferred_diet"`
	DietRestrictions datatypes.JSONSlice[string] `json:"diet_restrictions"`
	ProfileCompleted bool                        `gorm:"not null;default:false" json:"profile_completed"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// SurveyComplete reports whether every field the daily-limit calculation
// depends on is present.
func (u *User) SurveyComplete() bool {
	return u.DateOfBirth != nil &&
		u.Gender != "" &&
		u.CurrentWeight != nil && *u.CurrentWeight > 0 &&
		u.CurrentHeight != nil && *u.CurrentHeight > 0 &&
		u.ActivenessLevel != "" &&
		u.Goal != ""
}

func Contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

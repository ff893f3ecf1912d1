package model

import (
	"time"

	"gorm.io/datatypes"
)

// Nutrients is the fixed set of tracked daily targets.
var Nutrients = []string{
	"calories", "protein", "fat", "carbs", "fiber",
	"cholesterol", "saturated_fat", "unsaturated_fat",
	"omega_3", "omega_6", "calcium", "iron", "magnesium",
	"potassium", "zinc", "sodium", "vitamin_a", "vitamin_b6",
	"vitamin_b9", "vitamin_b12", "vitamin_c", "vitamin_d",
	"vitamin_e", "vitamin_k", "selenium",
}

type NutrientNorm struct {
	Name      string  `json:"name"`
	DailyNorm float64 `json:"daily_norm"`
}

type DailyLimit struct {
	ID        uint                             `gorm:"primaryKey" json:"id"`
	UserID    uint                             `gorm:"not null;uniqueIndex" json:"user_id"`
	Nutrients datatypes.JSONSlice[NutrientNorm] `json:"ingredients_summary"`
	CreatedAt time.Time                        `json:"created_at"`
	UpdatedAt time.Time                        `json:"updated_at"`
}

// NutrientTarget returns the daily norm for a tracked nutrient. Unknown names
// and nutrients missing from the record report false.
func NutrientTarget(limit *DailyLimit, name string) (float64, bool) {
	if limit == nil || !Contains(Nutrients, name) {
		return 0, false
	}
	for _, n := range limit.Nutrients {
		if n.Name == name {
			return n.DailyNorm, true
		}
	}
	return 0, false
}

// Valid mirrors the minimum shape accepted from the calculator.
func (d *DailyLimit) Valid() bool {
	return len(d.Nutrients) >= 10
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
)

const dailyLimitSystemPrompt = "You are a nutrition expert. Generate personalized daily dietary limits in JSON format."

// rdiDefaults is the recommended dietary intake used when the model cannot
// produce a personalized list.
var rdiDefaults = map[string]float64{
	"calories": 2000, "protein": 50, "fat": 65, "carbs": 300, "fiber": 25,
	"cholesterol": 300, "saturated_fat": 20, "unsaturated_fat": 45,
	"omega_3": 1.6, "omega_6": 12, "calcium": 1000, "iron": 18, "magnesium": 400,
	"potassium": 3500, "zinc": 11, "sodium": 2300, "vitamin_a": 900, "vitamin_b6": 1.7,
	"vitamin_b9": 400, "vitamin_b12": 2.4, "vitamin_c": 90, "vitamin_d": 20,
	"vitamin_e": 15, "vitamin_k": 120, "selenium": 55,
}

var (
	activityLevels = map[string]string{
		"sedentary":         "sedentary",
		"lightly_active":    "light",
		"moderately_active": "moderate",
		"very_active":       "active",
		"extremely_active":  "very_active",
	}
	goalNames = map[string]string{
		"lose_weight":     "lose_weight",
		"gain_weight":     "gain_muscle",
		"maintain_weight": "maintain",
	}
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// DailyLimitJob asks the worker to recalculate one user's limits.
type DailyLimitJob struct {
	UserID uint `json:"user_id"`
}

type surveyData struct {
	Age           int
	Gender        string
	Weight        float64
	Height        float64
	ActivityLevel string
	Goal          string
	Restrictions  []string
	PreferredDiet string
}

type DailyLimitService struct {
	userRepo  *repository.UserRepository
	limitRepo *repository.DailyLimitRepository
	model     ChatModel
	log       *logger.Logger
	now       func() time.Time
}

func NewDailyLimitService(
	userRepo *repository.UserRepository,
	limitRepo *repository.DailyLimitRepository,
	chatModel ChatModel,
	log *logger.Logger,
) *DailyLimitService {
	return &DailyLimitService{
		userRepo:  userRepo,
		limitRepo: limitRepo,
		model:     chatModel,
		log:       log.With("component", "app.DailyLimitService"),
		now:       time.Now,
	}
}

func (s *DailyLimitService) Get(ctx context.Context, userID uint) (*model.DailyLimit, error) {
	limit, err := s.limitRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit == nil {
		return nil, ErrDailyLimitNotFound
	}
	return limit, nil
}

// Target returns one nutrient's daily norm for the user.
func (s *DailyLimitService) Target(ctx context.Context, userID uint, nutrient string) (float64, error) {
	if !model.Contains(model.Nutrients, nutrient) {
		return 0, ErrUnknownNutrient
	}
	limit, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	v, ok := model.NutrientTarget(limit, nutrient)
	if !ok {
		return 0, ErrUnknownNutrient
	}
	return v, nil
}

// Generate recalculates and stores the user's limits. created reports
// whether this was the first calculation.
func (s *DailyLimitService) Generate(ctx context.Context, userID uint) (*model.DailyLimit, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, ErrUserNotFound
	}

	nutrients, err := s.Calculate(ctx, user)
	if err != nil {
		return nil, false, err
	}
	limit, created, err := s.limitRepo.Upsert(ctx, userID, nutrients)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("daily limits stored", "user_id", userID, "created", created, "nutrients", len(nutrients))
	return limit, created, nil
}

// Calculate asks the model for personalized limits. Model or parse failures
// fall back to RDI defaults; an incomplete survey is an error.
func (s *DailyLimitService) Calculate(ctx context.Context, user *model.User) ([]model.NutrientNorm, error) {
	survey, ok := s.extractSurvey(user)
	if !ok {
		return nil, ErrProfileIncomplete
	}

	out, err := s.model.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.ChatMessage{
			{Role: RoleSystem, Content: dailyLimitSystemPrompt},
			{Role: RoleUser, Content: buildDailyLimitPrompt(survey)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		s.log.Warn("daily limit model call failed, using defaults", "user_id", user.ID, "error", err)
		return FallbackNutrients(), nil
	}

	nutrients, err := ParseDailyLimits(out.Content)
	if err != nil {
		s.log.Warn("daily limit response unusable, using defaults", "user_id", user.ID, "error", err)
		return FallbackNutrients(), nil
	}
	return nutrients, nil
}

func (s *DailyLimitService) extractSurvey(user *model.User) (surveyData, bool) {
	if user == nil || !user.SurveyComplete() {
		return surveyData{}, false
	}
	activity, ok := activityLevels[user.ActivenessLevel]
	if !ok {
		activity = "moderate"
	}
	goal, ok := goalNames[user.Goal]
	if !ok {
		goal = "maintain"
	}
	diet := user.PreferredDiet
	if diet == "" {
		diet = "balanced"
	}
	return surveyData{
		Age:           ageOn(*user.DateOfBirth, s.now()),
		Gender:        user.Gender,
		Weight:        *user.CurrentWeight,
		Height:        *user.CurrentHeight,
		ActivityLevel: activity,
		Goal:          goal,
		Restrictions:  user.DietRestrictions,
		PreferredDiet: diet,
	}, true
}

func ageOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

func buildDailyLimitPrompt(d surveyData) string {
	restrictions := "None"
	if len(d.Restrictions) > 0 {
		restrictions = strings.Join(d.Restrictions, ", ")
	}

	var b strings.Builder
	b.WriteString("Based on the following user profile, calculate personalized daily dietary limits:\n\n")
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "- Age: %d years\n", d.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", d.Gender)
	fmt.Fprintf(&b, "- Weight: %g kg\n", d.Weight)
	fmt.Fprintf(&b, "- Height: %g cm\n", d.Height)
	fmt.Fprintf(&b, "- Activity Level: %s\n", d.ActivityLevel)
	fmt.Fprintf(&b, "- Goal: %s\n", d.Goal)
	fmt.Fprintf(&b, "- Dietary Restrictions: %s\n", restrictions)
	fmt.Fprintf(&b, "- Preferred Diet Type: %s\n\n", d.PreferredDiet)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Calculate BMR using the Mifflin-St Jeor equation\n")
	b.WriteString("2. Apply the activity level multiplier to get TDEE\n")
	b.WriteString("3. Adjust calories for the goal: lose_weight -500, gain_muscle +300, maintain 0\n")
	b.WriteString("4. Calculate macro targets based on goal and diet type\n")
	b.WriteString("5. Apply dietary restrictions\n\n")
	b.WriteString("Return ONLY a JSON object of this shape, no other text:\n")
	b.WriteString(`{"ingredients_summary": [`)
	for i, name := range model.Nutrients {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `{"name": %q, "daily_norm": NUMBER}`, name)
	}
	b.WriteString("]}\n")
	return b.String()
}

// ParseDailyLimits accepts a bare JSON object or the first {...} block inside
// surrounding text, such as a fenced code block.
func ParseDailyLimits(text string) ([]model.NutrientNorm, error) {
	var payload struct {
		IngredientsSummary []map[string]json.RawMessage `json:"ingredients_summary"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		block := jsonObjectPattern.FindString(text)
		if block == "" {
			return nil, fmt.Errorf("no json object in response")
		}
		if err := json.Unmarshal([]byte(block), &payload); err != nil {
			return nil, fmt.Errorf("parse daily limits json failed: %w", err)
		}
	}
	if payload.IngredientsSummary == nil {
		return nil, fmt.Errorf("response missing ingredients_summary")
	}

	out := make([]model.NutrientNorm, 0, len(payload.IngredientsSummary))
	for _, item := range payload.IngredientsSummary {
		rawName, okName := item["name"]
		rawNorm, okNorm := item["daily_norm"]
		if !okName || !okNorm {
			return nil, fmt.Errorf("ingredient must have name and daily_norm")
		}
		var name string
		if err := json.Unmarshal(rawName, &name); err != nil {
			return nil, fmt.Errorf("invalid ingredient name: %w", err)
		}
		var norm float64
		if err := json.Unmarshal(rawNorm, &norm); err != nil {
			return nil, fmt.Errorf("invalid daily_norm for %s: %w", name, err)
		}
		out = append(out, model.NutrientNorm{Name: name, DailyNorm: norm})
	}
	if !(&model.DailyLimit{Nutrients: out}).Valid() {
		return nil, fmt.Errorf("too few nutrients in response: %d", len(out))
	}
	return out, nil
}

// FallbackNutrients returns the RDI defaults in the canonical nutrient order.
func FallbackNutrients() []model.NutrientNorm {
	out := make([]model.NutrientNorm, 0, len(model.Nutrients))
	for _, name := range model.Nutrients {
		out = append(out, model.NutrientNorm{Name: name, DailyNorm: rdiDefaults[name]})
	}
	return out
}

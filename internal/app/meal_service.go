package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/model"
	"fitora-backend/internal/pkg/imaging"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/storage"
)

const (
	MaxMealImageBytes = 10 << 20
	analysisMaxSide   = 1024
	analysisMaxTokens = 2000
	summaryDateLayout = "2006-01-02"

	mealAnalysisPrompt = "You are a professional nutritionist and food analysis expert. " +
		"Analyze this meal photo in detail. For each food item you can identify: " +
		"1. the food name, 2. the estimated portion size (e.g. '1 burger (250g)'), " +
		"3. nutrition: calories, carbs, fat, protein, calcium, iron, magnesium, potassium, zinc, " +
		"vitamin_a, vitamin_b9, vitamin_b12, vitamin_c, vitamin_d, cholesterol, fiber, omega_3, " +
		"saturated_fat, sodium. Use kcal for calories, g for macros, mg or mcg for minerals and vitamins. " +
		`Respond with JSON only: {"foods": [{"name": "...", "portion": "...", "nutrients": {"calories": 0, ...}}]}`
)

var ErrMealAnalysis = errors.New("meal image analysis failed")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// MealAnalyzer sends an image with an instruction to a vision model.
type MealAnalyzer interface {
	AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string, maxTokens int) (*ai.Completion, error)
}

type MealService struct {
	mealRepo  *repository.MealRepository
	store     storage.ObjectStore
	analyzer  MealAnalyzer
	signedTTL time.Duration
	loc       *time.Location
	log       *logger.Logger
}

type UploadMealInput struct {
	UserID   uint
	Filename string
	MealTime string
	Data     []byte
}

// DailySummary lists one calendar day of meals with summed nutrient totals.
type DailySummary struct {
	Date       string             `json:"date"`
	Meals      []MealView         `json:"meals"`
	TotalMeals int                `json:"total_meals"`
	Totals     map[string]float64 `json:"totals"`
}

// MealView is a meal with a short-lived link to its photo.
type MealView struct {
	model.Meal
	ImageURL string `json:"image_url,omitempty"`
}

func NewMealService(
	mealRepo *repository.MealRepository,
	store storage.ObjectStore,
	analyzer MealAnalyzer,
	signedTTL time.Duration,
	log *logger.Logger,
) *MealService {
	if signedTTL <= 0 {
		signedTTL = time.Hour
	}
	return &MealService{
		mealRepo:  mealRepo,
		store:     store,
		analyzer:  analyzer,
		signedTTL: signedTTL,
		loc:       time.Local,
		log:       log.With("component", "app.MealService"),
	}
}

// Upload stores the original photo, analyzes a downscaled copy and saves the
// meal. The object is removed again when analysis or persistence fails.
func (s *MealService) Upload(ctx context.Context, input UploadMealInput) (*MealView, error) {
	if input.UserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if len(input.Data) > MaxMealImageBytes {
		return nil, ErrImageTooLarge
	}
	if input.MealTime != "" && !model.Contains(model.MealTimes, input.MealTime) {
		return nil, ErrInvalidInput
	}
	contentType := http.DetectContentType(input.Data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, ErrImageType
	}
	if fileExt := strings.ToLower(path.Ext(input.Filename)); fileExt == ".jpeg" || fileExt == ".jpg" || fileExt == ".png" {
		ext = fileExt
	}

	scaled, err := imaging.FitJPEG(input.Data, analysisMaxSide)
	if err != nil {
		return nil, ErrImageType
	}

	objectName := fmt.Sprintf("meals/user_%d/%s%s", input.UserID, uuid.NewString(), ext)
	if err := s.store.Put(ctx, objectName, contentType, bytes.NewReader(input.Data)); err != nil {
		return nil, err
	}

	foods, err := s.analyze(ctx, scaled)
	if err != nil {
		s.removeObject(ctx, objectName)
		return nil, err
	}

	meal := &model.Meal{
		UserID:      input.UserID,
		ObjectName:  objectName,
		ContentType: contentType,
		Size:        int64(len(input.Data)),
		MealTime:    input.MealTime,
		Foods:       foods,
	}
	if err := s.mealRepo.Create(ctx, meal); err != nil {
		s.removeObject(ctx, objectName)
		return nil, err
	}
	s.log.Info("meal uploaded", "user_id", input.UserID, "meal_id", meal.ID, "size", meal.Size)
	return s.view(*meal), nil
}

func (s *MealService) analyze(ctx context.Context, image []byte) (datatypes.JSON, error) {
	out, err := s.analyzer.AnalyzeImage(ctx, mealAnalysisPrompt, image, "image/jpeg", analysisMaxTokens)
	if err != nil {
		s.log.Warn("meal analysis call failed", "error", err)
		return nil, ErrMealAnalysis
	}
	foods, err := ParseMealAnalysis(out.Content)
	if err != nil {
		s.log.Warn("meal analysis response unusable", "error", err)
		return nil, ErrMealAnalysis
	}
	return foods, nil
}

// ParseMealAnalysis extracts the foods array from a vision model reply.
func ParseMealAnalysis(text string) (datatypes.JSON, error) {
	var payload struct {
		Foods json.RawMessage `json:"foods"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		block := jsonObjectPattern.FindString(text)
		if block == "" {
			return nil, fmt.Errorf("no json object in response")
		}
		if err := json.Unmarshal([]byte(block), &payload); err != nil {
			return nil, fmt.Errorf("parse meal analysis failed: %w", err)
		}
	}
	var foods []json.RawMessage
	if err := json.Unmarshal(payload.Foods, &foods); err != nil {
		return nil, fmt.Errorf("foods must be a list: %w", err)
	}
	return datatypes.JSON(payload.Foods), nil
}

func (s *MealService) List(ctx context.Context, userID uint, limit int) ([]MealView, error) {
	meals, err := s.mealRepo.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MealView, 0, len(meals))
	for _, m := range meals {
		out = append(out, MealView{Meal: m})
	}
	return out, nil
}

// DailySummary totals every tracked nutrient over the meals logged on date
// (YYYY-MM-DD, in the server's time zone).
func (s *MealService) DailySummary(ctx context.Context, userID uint, date string) (*DailySummary, error) {
	day, err := time.ParseInLocation(summaryDateLayout, date, s.loc)
	if err != nil {
		return nil, ErrInvalidInput
	}
	meals, err := s.mealRepo.ListByUserIDBetween(ctx, userID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64, len(model.Nutrients))
	for _, name := range model.Nutrients {
		totals[name] = 0
	}
	views := make([]MealView, 0, len(meals))
	for _, m := range meals {
		views = append(views, MealView{Meal: m})
		if err := addMealNutrients(totals, m.Foods); err != nil {
			s.log.Warn("skip unreadable meal foods", "meal_id", m.ID, "error", err)
		}
	}
	for name, v := range totals {
		totals[name] = math.Round(v*100) / 100
	}

	return &DailySummary{
		Date:       day.Format(summaryDateLayout),
		Meals:      views,
		TotalMeals: len(views),
		Totals:     totals,
	}, nil
}

// Older analyses split values into nutritions, minerals and vitamins.
var foodNutrientGroups = []string{"nutrients", "nutritions", "minerals", "vitamins"}

func addMealNutrients(totals map[string]float64, foods datatypes.JSON) error {
	if len(foods) == 0 {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(foods, &items); err != nil {
		return fmt.Errorf("decode foods failed: %w", err)
	}
	for _, item := range items {
		for _, group := range foodNutrientGroups {
			raw, ok := item[group]
			if !ok {
				continue
			}
			var values map[string]json.RawMessage
			if err := json.Unmarshal(raw, &values); err != nil {
				continue
			}
			for name, value := range values {
				if _, tracked := totals[name]; !tracked {
					continue
				}
				if amount, ok := nutrientAmount(value); ok {
					totals[name] += amount
				}
			}
		}
	}
	return nil
}

// nutrientAmount reads 12.5 as well as "780 kcal" or "12.5g".
func nutrientAmount(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	number := strings.TrimRightFunc(fields[0], func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	amount, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

func (s *MealService) Get(ctx context.Context, userID, mealID uint) (*MealView, error) {
	meal, err := s.mealRepo.GetByIDAndUserID(ctx, mealID, userID)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, ErrMealNotFound
	}
	return s.view(*meal), nil
}

func (s *MealService) Delete(ctx context.Context, userID, mealID uint) error {
	meal, err := s.mealRepo.GetByIDAndUserID(ctx, mealID, userID)
	if err != nil {
		return err
	}
	if meal == nil {
		return ErrMealNotFound
	}
	s.removeObject(ctx, meal.ObjectName)
	return s.mealRepo.DeleteByIDAndUserID(ctx, mealID, userID)
}

func (s *MealService) view(meal model.Meal) *MealView {
	url, err := s.store.SignedURL(meal.ObjectName, s.signedTTL)
	if err != nil {
		s.log.Warn("sign meal image url failed", "meal_id", meal.ID, "error", err)
	}
	return &MealView{Meal: meal, ImageURL: url}
}

func (s *MealService) removeObject(ctx context.Context, name string) {
	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Warn("delete meal image failed", "object", name, "error", err)
	}
}

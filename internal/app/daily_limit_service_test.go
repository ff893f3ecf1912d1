package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/testutil"
)

type scriptedModel struct {
	content string
	err     error
	last    ai.CompletionRequest
}

func (m *scriptedModel) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &ai.Completion{Content: m.content, Model: "gpt-4"}, nil
}

func limitsJSON(calories float64) string {
	parts := make([]string, 0, len(model.Nutrients))
	for _, name := range model.Nutrients {
		v := 1.0
		if name == "calories" {
			v = calories
		}
		parts = append(parts, fmt.Sprintf(`{"name": %q, "daily_norm": %g}`, name, v))
	}
	return `{"ingredients_summary": [` + strings.Join(parts, ",") + `]}`
}

func surveyedUser(t *testing.T, repo *repository.UserRepository) *model.User {
	t.Helper()
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	w, h := 82.5, 181.0
	user := &model.User{
		DateOfBirth:      &dob,
		Gender:           model.GenderMale,
		CurrentWeight:    &w,
		CurrentHeight:    &h,
		ActivenessLevel:  "lightly_active",
		Goal:             "gain_weight",
		DietRestrictions: []string{"lactose"},
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestParseDailyLimits(t *testing.T) {
	got, err := ParseDailyLimits(limitsJSON(2400))
	require.NoError(t, err)
	require.Len(t, got, len(model.Nutrients))
	assert.Equal(t, model.NutrientNorm{Name: "calories", DailyNorm: 2400}, got[0])

	fenced := "Here you go:\n```json\n" + limitsJSON(1800) + "\n```"
	got, err = ParseDailyLimits(fenced)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, got[0].DailyNorm)

	_, err = ParseDailyLimits("sorry, I cannot help")
	assert.Error(t, err)

	_, err = ParseDailyLimits(`{"ingredients_summary": [{"name": "calories"}]}`)
	assert.Error(t, err)

	_, err = ParseDailyLimits(`{"ingredients_summary": [{"name": "calories", "daily_norm": 2000}]}`)
	assert.Error(t, err, "too few nutrients")
}

func TestFallbackNutrientsCoverEveryTrackedNutrient(t *testing.T) {
	got := FallbackNutrients()
	require.Len(t, got, len(model.Nutrients))
	for i, n := range got {
		assert.Equal(t, model.Nutrients[i], n.Name)
		assert.Greater(t, n.DailyNorm, 0.0, n.Name)
	}
}

func TestDailyLimitGenerateUsesModel(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	m := &scriptedModel{content: limitsJSON(2750)}
	svc := NewDailyLimitService(users, repository.NewDailyLimitRepository(db), m, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC) }
	user := surveyedUser(t, users)
	ctx := context.Background()

	limit, created, err := svc.Generate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0.3, m.last.Temperature)
	assert.Equal(t, 2000, m.last.MaxTokens)
	prompt := m.last.Messages[1].Content
	assert.Contains(t, prompt, "Age: 35 years")
	assert.Contains(t, prompt, "Activity Level: light")
	assert.Contains(t, prompt, "Goal: gain_muscle")
	assert.Contains(t, prompt, "Dietary Restrictions: lactose")
	assert.Contains(t, prompt, "Preferred Diet Type: balanced")

	v, ok := model.NutrientTarget(limit, "calories")
	require.True(t, ok)
	assert.Equal(t, 2750.0, v)

	target, err := svc.Target(ctx, user.ID, "calories")
	require.NoError(t, err)
	assert.Equal(t, 2750.0, target)
	_, err = svc.Target(ctx, user.ID, "caffeine")
	assert.ErrorIs(t, err, ErrUnknownNutrient)

	_, created, err = svc.Generate(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDailyLimitFallsBackOnModelFailure(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	svc := NewDailyLimitService(users, repository.NewDailyLimitRepository(db), &scriptedModel{err: errors.New("down")}, logger.NewNop())
	user := surveyedUser(t, users)

	limit, _, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	v, ok := model.NutrientTarget(limit, "calories")
	require.True(t, ok)
	assert.Equal(t, 2000.0, v)
}

func TestDailyLimitRequiresCompleteSurvey(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	svc := NewDailyLimitService(users, repository.NewDailyLimitRepository(db), &scriptedModel{}, logger.NewNop())
	user := &model.User{FirstName: "Incomplete"}
	require.NoError(t, users.Create(context.Background(), user))

	_, _, err := svc.Generate(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrProfileIncomplete)

	_, err = svc.Get(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrDailyLimitNotFound)

	_, _, err = svc.Generate(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAgeOn(t *testing.T) {
	dob := time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 25, ageOn(dob, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 26, ageOn(dob, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
}

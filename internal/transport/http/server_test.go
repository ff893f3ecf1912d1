package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/app"
	"fitora-backend/internal/bootstrap"
	"fitora-backend/internal/cache"
	"fitora-backend/internal/config"
	"fitora-backend/internal/platform/google"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/platform/rabbitmq"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/testutil"
	"fitora-backend/internal/tokens"
)

const routerSecret = "router-secret"

type stubModel struct{}

func (stubModel) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	if req.MaxTokens == 20 {
		return &ai.Completion{Content: "Breakfast ideas", Model: "gpt-4"}, nil
	}
	return &ai.Completion{
		Content: "Try oats with berries.",
		Model:   "gpt-4",
		Usage:   ai.Usage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18},
	}, nil
}

func (stubModel) AnalyzeImage(context.Context, string, []byte, string, int) (*ai.Completion, error) {
	return &ai.Completion{Content: `{"foods":[]}`}, nil
}

type smsOutbox struct{ text string }

func (s *smsOutbox) Send(_ context.Context, _, text string) error {
	s.text = text
	return nil
}

type noGoogle struct{}

func (noGoogle) Verify(context.Context, string) (*google.Identity, error) {
	return nil, app.ErrGoogleToken
}

type nopStore struct{}

func (nopStore) Put(context.Context, string, string, io.Reader) error { return nil }
func (nopStore) Delete(context.Context, string) error { return nil }
func (nopStore) SignedURL(name string, _ time.Duration) (string, error) {
	return "https://storage.example/" + name, nil
}

func newTestApp(t *testing.T) (*bootstrap.App, *smsOutbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	_, redisCli := testutil.Redis(t)
	log := logger.NewNop()
	cfg := &config.Config{
		App:  config.AppConfig{Name: "fitora-backend", Env: "test", GinMode: gin.TestMode},
		Auth: config.AuthConfig{JWTSecret: routerSecret, JWTExpireMinute: 60},
		Chat: config.ChatConfig{
			MaxHistoryMessages:     20,
			MaxTokens:              8000,
			ReservedResponseTokens: 1000,
			ResponseMaxTokens:      500,
			MaxRetries:             1,
			MaxMessageLength:       4000,
		},
	}

	users := repository.NewUserRepository(db)
	messages := repository.NewMessageRepository(db)
	limits := repository.NewDailyLimitRepository(db)
	meals := repository.NewMealRepository(db)
	outbox := &smsOutbox{}

	services := bootstrap.Services{
		Auth: app.NewAuthService(users, cache.NewOTPStore(redisCli, 5*time.Minute), outbox, noGoogle{},
			routerSecret, time.Hour, log),
		Chat: app.NewChatService(
			repository.NewSessionRepository(db),
			messages,
			app.NewHistoryStore(messages, cache.NewRedisHistoryCache(redisCli, time.Hour, log), cfg.Chat.MaxHistoryMessages, log),
			app.NewContextAssembler(tokens.NewCounter("gpt-4"), "gpt-4", 8000, 1000),
			stubModel{},
			"gpt-4",
			cfg.Chat,
			log,
		),
		Profile:    app.NewProfileService(users, rabbitmq.NewJobPublisher(nil, "daily_limit.recalculate"), log),
		DailyLimit: app.NewDailyLimitService(users, limits, stubModel{}, log),
		Meal:       app.NewMealService(meals, nopStore{}, stubModel{}, time.Hour, log),
		Dietologist: app.NewDietologistService(
			repository.NewDietologistRepository(db),
			repository.NewGroupRepository(db),
			repository.NewClientRequestRepository(db),
			users, limits, meals, routerSecret, time.Hour, log,
		),
	}

	return &bootstrap.App{
		Config:    cfg,
		Logger:    log,
		MySQL:     db,
		Redis:     redisCli,
		Services:  services,
		StartedAt: time.Now(),
	}, outbox
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, h nethttp.Handler, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func login(t *testing.T, router nethttp.Handler, outbox *smsOutbox) string {
	t.Helper()
	status, env := call(t, router, nethttp.MethodPost, "/api/v1/auth/otp/send", "", gin.H{"phone_number": "+15550001234"})
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var challenge struct {
		Session string `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &challenge))

	code := regexp.MustCompile(`\d{6}`).FindString(outbox.text)
	status, env = call(t, router, nethttp.MethodPost, "/api/v1/auth/otp/verify", "",
		gin.H{"session": challenge.Session, "otp": code})
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var result struct {
		Token string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func TestChatFlowThroughRouter(t *testing.T) {
	a, outbox := newTestApp(t)
	router := NewRouter(a)
	token := login(t, router, outbox)

	status, env := call(t, router, nethttp.MethodPost, "/api/v1/chat/send", token, gin.H{"message": "Plan my breakfast"})
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var sent struct {
		Session struct {
			ID    uint   `json:"session_id"`
			Title string `json:"title"`
		} `json:"session"`
		Reply struct {
			Message string `json:"message"`
			Author  string `json:"author"`
		} `json:"ai_response"`
		IsNewSession bool `json:"is_new_session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.True(t, sent.IsNewSession)
	assert.Equal(t, "Breakfast ideas", sent.Session.Title)
	assert.Equal(t, "Try oats with berries.", sent.Reply.Message)
	assert.Equal(t, "ai", sent.Reply.Author)

	status, env = call(t, router, nethttp.MethodGet, "/api/v1/chat/sessions", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	var sessions []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.EqualValues(t, 2, sessions[0]["message_count"])

	status, env = call(t, router, nethttp.MethodGet, "/api/v1/chat/messages?session_id=1&limit=10", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 2)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/chat/sessions/999", token, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, _ = call(t, router, nethttp.MethodDelete, "/api/v1/chat/sessions/1", token, nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/chat/sessions/1", token, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestRouterRejectsBadInput(t *testing.T) {
	a, outbox := newTestApp(t)
	router := NewRouter(a)

	status, _ := call(t, router, nethttp.MethodGet, "/api/v1/chat/sessions", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	token := login(t, router, outbox)

	status, _ = call(t, router, nethttp.MethodPost, "/api/v1/chat/send", token, gin.H{"message": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/chat/messages?session_id=abc", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/daily-limits", token, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/daily-limits/targets/caffeine", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/dietologists/groups", token, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/meals/daily", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = call(t, router, nethttp.MethodGet, "/api/v1/meals/daily?date=2026-13-40", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, env := call(t, router, nethttp.MethodGet, "/api/v1/meals/daily?date=2026-05-12", token, nil)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var summary struct {
		Date       string             `json:"date"`
		TotalMeals int                `json:"total_meals"`
		Totals     map[string]float64 `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "2026-05-12", summary.Date)
	assert.Zero(t, summary.TotalMeals)
	assert.Contains(t, summary.Totals, "calories")

	status, _ = call(t, router, nethttp.MethodPost, "/api/v1/auth/google", "", gin.H{"google_token": "forged"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestProfileUpdateSurvivesMissingBroker(t *testing.T) {
	a, outbox := newTestApp(t)
	router := NewRouter(a)
	token := login(t, router, outbox)

	status, env := call(t, router, nethttp.MethodPut, "/api/v1/profile", token, gin.H{
		"gender":           "female",
		"date_of_birth":    "1992-03-14",
		"current_height":   168,
		"current_weight":   61,
		"activeness_level": "lightly_active",
		"goal":             "maintain_weight",
	})
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var user struct {
		ProfileCompleted bool `json:"profile_completed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.True(t, user.ProfileCompleted)

	status, _ = call(t, router, nethttp.MethodPut, "/api/v1/profile", token, gin.H{"goal": "get_rich"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
}

func TestHealthzReportsDegradedWithoutBroker(t *testing.T) {
	a, _ := newTestApp(t)
	router := NewRouter(a)

	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, nethttp.StatusOK, w.Code)

	var body struct {
		Status       string `json:"status"`
		Dependencies map[string]struct {
			OK bool `json:"ok"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.True(t, body.Dependencies["mysql"].OK)
	assert.True(t, body.Dependencies["redis"].OK)
	assert.False(t, body.Dependencies["rabbitmq"].OK)
}

package bootstrap

import (
	"context"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/app"
	"fitora-backend/internal/cache"
	"fitora-backend/internal/config"
	"fitora-backend/internal/model"
	gcsClient "fitora-backend/internal/platform/gcs"
	"fitora-backend/internal/platform/google"
	"fitora-backend/internal/platform/logger"
	mysqlClient "fitora-backend/internal/platform/mysql"
	rabbitmqClient "fitora-backend/internal/platform/rabbitmq"
	redisClient "fitora-backend/internal/platform/redis"
	"fitora-backend/internal/platform/sms"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/storage"
	"fitora-backend/internal/tokens"
	"fitora-backend/internal/worker"
)

// Services is every application service the transport layer needs.
type Services struct {
	Auth        *app.AuthService
	Chat        *app.ChatService
	Profile     *app.ProfileService
	DailyLimit  *app.DailyLimitService
	Meal        *app.MealService
	Dietologist *app.DietologistService
}

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	MySQL   *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Storage *gcs.Client

	Services    Services
	RateLimiter *cache.RateLimiter
	LimitWorker *worker.DailyLimitWorker

	StartedAt time.Time
}

// New connects every backing service, wires the application services and
// starts the background worker. MySQL and object storage are required; Redis
// and RabbitMQ degrade to no-op behavior when unreachable.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.App.Env != "prod")
	if err != nil {
		return nil, err
	}
	a.MySQL = mysqlDB
	if err := mysqlClient.Migrate(mysqlDB, model.All()...); err != nil {
		_ = a.Close()
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("redis unavailable, history cache and rate limits disabled", "error", err)
	} else {
		a.Redis = redisCli
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.DailyLimitQueue)
	if err != nil {
		log.Warn("rabbitmq unavailable, daily limit jobs disabled", "error", err)
	} else {
		a.MQConn = mqConn
	}

	storageCli, err := gcsClient.New(ctx, cfg.Storage.CredentialsFile, cfg.Storage.EmulatorHost)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Storage = storageCli

	a.Services = buildServices(cfg, log, mysqlDB, a.Redis, mqConn, storageCli)
	if a.Redis != nil && cfg.RateLimit.Enabled {
		a.RateLimiter = cache.NewRateLimiter(a.Redis, "ratelimit:chat",
			cache.Window{Limit: int64(cfg.RateLimit.PerMinute), Period: time.Minute},
			cache.Window{Limit: int64(cfg.RateLimit.PerHour), Period: time.Hour},
		)
	}

	if a.MQConn != nil {
		a.LimitWorker = worker.NewDailyLimitWorker(a.MQConn, a.Services.DailyLimit, cfg.RabbitMQ.DailyLimitQueue, log)
		if err := a.LimitWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start daily limit worker failed: %w", err)
		}
	}

	return a, nil
}

func buildServices(
	cfg *config.Config,
	log *logger.Logger,
	db *gorm.DB,
	redisCli *redis.Client,
	mqConn *amqp.Connection,
	storageCli *gcs.Client,
) Services {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	limitRepo := repository.NewDailyLimitRepository(db)
	mealRepo := repository.NewMealRepository(db)

	var historyCache cache.HistoryCache = cache.NoopHistoryCache{}
	if redisCli != nil {
		historyCache = cache.NewRedisHistoryCache(redisCli, cfg.Chat.CacheTTL(), log)
	}

	var smsSender sms.Sender = sms.NewLogSender(log)
	if cfg.SMS.APIURL != "" {
		smsSender = sms.NewGatewaySender(sms.GatewayConfig{
			APIURL:     cfg.SMS.APIURL,
			Username:   cfg.SMS.Username,
			Password:   cfg.SMS.Password,
			Originator: cfg.SMS.Originator,
		})
	}

	llm := ai.NewOpenAICompatibleClient(ai.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
	})
	jwtTTL := time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute

	return Services{
		Auth: app.NewAuthService(
			userRepo,
			cache.NewOTPStore(redisCli, time.Duration(cfg.Auth.OTPTTLSeconds)*time.Second),
			smsSender,
			google.NewIDTokenVerifier(cfg.Auth.GoogleClientID),
			cfg.Auth.JWTSecret,
			jwtTTL,
			log,
		),
		Chat: app.NewChatService(
			sessionRepo,
			messageRepo,
			app.NewHistoryStore(messageRepo, historyCache, cfg.Chat.MaxHistoryMessages, log),
			app.NewContextAssembler(tokens.NewCounter(llm.ModelName()), llm.ModelName(), cfg.Chat.MaxTokens, cfg.Chat.ReservedResponseTokens),
			llm,
			llm.ModelName(),
			cfg.Chat,
			log,
		),
		Profile:    app.NewProfileService(userRepo, rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.DailyLimitQueue), log),
		DailyLimit: app.NewDailyLimitService(userRepo, limitRepo, llm, log),
		Meal: app.NewMealService(
			mealRepo,
			storage.NewGCSStore(storageCli, cfg.Storage.Bucket),
			llm,
			time.Duration(cfg.Storage.SignedURLMinute)*time.Minute,
			log,
		),
		Dietologist: app.NewDietologistService(
			repository.NewDietologistRepository(db),
			repository.NewGroupRepository(db),
			repository.NewClientRequestRepository(db),
			userRepo,
			limitRepo,
			mealRepo,
			cfg.Auth.JWTSecret,
			jwtTTL,
			log,
		),
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.LimitWorker != nil {
		a.LimitWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

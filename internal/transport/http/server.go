package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fitora-backend/internal/bootstrap"
	"fitora-backend/internal/pkg/jwtutil"
	"fitora-backend/internal/transport/http/handler"
	"fitora-backend/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.New(corsConfig(app.Config.App.CORSOrigins)))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	services := app.Services
	authHandler := handler.NewAuthHandler(services.Auth)
	profileHandler := handler.NewProfileHandler(services.Profile)
	chatHandler := handler.NewChatHandler(services.Chat)
	limitHandler := handler.NewDailyLimitHandler(services.DailyLimit)
	mealHandler := handler.NewMealHandler(services.Meal)
	dietologistHandler := handler.NewDietologistHandler(services.Dietologist)

	secret := app.Config.Auth.JWTSecret
	userAuth := middleware.AuthJWT(secret, jwtutil.RoleUser)
	dietologistAuth := middleware.AuthJWT(secret, jwtutil.RoleDietologist)

	var limiter middleware.Limiter
	if app.RateLimiter != nil {
		limiter = app.RateLimiter
	}

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/otp/send", authHandler.SendOTP)
	authGroup.POST("/otp/verify", authHandler.VerifyOTP)
	authGroup.POST("/google", authHandler.GoogleLogin)
	authGroup.GET("/me", userAuth, authHandler.Me)

	profileGroup := v1.Group("/profile", userAuth)
	profileGroup.GET("", profileHandler.Get)
	profileGroup.PUT("", profileHandler.Update)

	chatGroup := v1.Group("/chat", userAuth, middleware.RateLimit(limiter, app.Logger))
	chatGroup.POST("/send", chatHandler.SendMessage)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.GET("/sessions/:id", chatHandler.GetSession)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.GET("/messages", chatHandler.GetHistory)

	limitGroup := v1.Group("/daily-limits", userAuth)
	limitGroup.GET("", limitHandler.Get)
	limitGroup.POST("/generate", limitHandler.Generate)
	limitGroup.GET("/targets/:nutrient", limitHandler.Target)

	mealGroup := v1.Group("/meals", userAuth)
	mealGroup.POST("", mealHandler.Upload)
	mealGroup.GET("", mealHandler.List)
	mealGroup.GET("/daily", mealHandler.DailySummary)
	mealGroup.GET("/:id", mealHandler.Get)
	mealGroup.DELETE("/:id", mealHandler.Delete)

	dietoGroup := v1.Group("/dietologists")
	dietoGroup.POST("/login", dietologistHandler.Login)
	dietoGroup.POST("/requests", userAuth, dietologistHandler.RequestJoin)

	staff := dietoGroup.Group("", dietologistAuth)
	staff.POST("/groups", dietologistHandler.CreateGroup)
	staff.GET("/groups", dietologistHandler.ListGroups)
	staff.PATCH("/groups/:id", dietologistHandler.RenameGroup)
	staff.GET("/requests", dietologistHandler.ListRequests)
	staff.POST("/requests/:id/respond", dietologistHandler.RespondRequest)
	staff.GET("/clients", dietologistHandler.ListClients)
	staff.GET("/clients/:id", dietologistHandler.ClientDetail)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

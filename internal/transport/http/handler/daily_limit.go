package handler

import (
	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

type DailyLimitHandler struct {
	limitService *app.DailyLimitService
}

func NewDailyLimitHandler(limitService *app.DailyLimitService) *DailyLimitHandler {
	return &DailyLimitHandler{limitService: limitService}
}

func (h *DailyLimitHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, err := h.limitService.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "get daily limits failed")
		return
	}
	response.OK(c, limit)
}

// Generate recalculates synchronously, bypassing the queue.
func (h *DailyLimitHandler) Generate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, created, err := h.limitService.Generate(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "generate daily limits failed")
		return
	}
	if created {
		response.Created(c, limit)
		return
	}
	response.OK(c, limit)
}

func (h *DailyLimitHandler) Target(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	nutrient := c.Param("nutrient")
	value, err := h.limitService.Target(c.Request.Context(), userID, nutrient)
	if err != nil {
		writeError(c, err, "get nutrient target failed")
		return
	}
	response.OK(c, gin.H{"nutrient": nutrient, "daily_norm": value})
}

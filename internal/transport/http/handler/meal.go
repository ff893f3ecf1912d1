package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

const mealListLimit = 50

type MealHandler struct {
	mealService *app.MealService
}

func NewMealHandler(mealService *app.MealService) *MealHandler {
	return &MealHandler{mealService: mealService}
}

func (h *MealHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Leave room for the multipart framing around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, app.MaxMealImageBytes+1<<20)
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, app.ErrImageTooLarge, "")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "image file is required")
		return
	}
	if fileHeader.Size > app.MaxMealImageBytes {
		writeError(c, app.ErrImageTooLarge, "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read image failed")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, app.MaxMealImageBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read image failed")
		return
	}

	meal, err := h.mealService.Upload(c.Request.Context(), app.UploadMealInput{
		UserID:   userID,
		Filename: fileHeader.Filename,
		MealTime: c.PostForm("meal_time"),
		Data:     data,
	})
	if err != nil {
		writeError(c, err, "upload meal failed")
		return
	}
	response.Created(c, meal)
}

func (h *MealHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	meals, err := h.mealService.List(c.Request.Context(), userID, queryInt(c, "limit", mealListLimit))
	if err != nil {
		writeError(c, err, "list meals failed")
		return
	}
	response.OK(c, meals)
}

func (h *MealHandler) DailySummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "date query parameter is required (YYYY-MM-DD)")
		return
	}

	summary, err := h.mealService.DailySummary(c.Request.Context(), userID, date)
	if err != nil {
		writeError(c, err, "daily summary failed")
		return
	}
	response.OK(c, summary)
}

func (h *MealHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	mealID, ok := pathID(c, "id")
	if !ok {
		return
	}

	meal, err := h.mealService.Get(c.Request.Context(), userID, mealID)
	if err != nil {
		writeError(c, err, "get meal failed")
		return
	}
	response.OK(c, meal)
}

func (h *MealHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	mealID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.mealService.Delete(c.Request.Context(), userID, mealID); err != nil {
		writeError(c, err, "delete meal failed")
		return
	}
	response.OK(c, gin.H{"deleted_meal_id": mealID})
}

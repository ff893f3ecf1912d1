package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

type ProfileHandler struct {
	profileService *app.ProfileService
}

type UpdateProfileRequest struct {
	FirstName        *string  `json:"first_name" binding:"omitempty,max=50"`
	LastName         *string  `json:"last_name" binding:"omitempty,max=50"`
	Gender           *string  `json:"gender"`
	DateOfBirth      *string  `json:"date_of_birth"`
	CurrentHeight    *float64 `json:"current_height"`
	CurrentWeight    *float64 `json:"current_weight"`
	TargetWeight     *float64 `json:"target_weight"`
	ActivenessLevel  *string  `json:"activeness_level"`
	Goal             *string  `json:"goal"`
	PreferredDiet    *string  `json:"preferred_diet"`
	DietRestrictions []string `json:"diet_restrictions"`
}

func NewProfileHandler(profileService *app.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "get profile failed")
		return
	}
	response.OK(c, user)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.profileService.Update(c.Request.Context(), userID, app.UpdateProfileInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Gender:           req.Gender,
		DateOfBirth:      req.DateOfBirth,
		CurrentHeight:    req.CurrentHeight,
		CurrentWeight:    req.CurrentWeight,
		TargetWeight:     req.TargetWeight,
		ActivenessLevel:  req.ActivenessLevel,
		Goal:             req.Goal,
		PreferredDiet:    req.PreferredDiet,
		DietRestrictions: req.DietRestrictions,
	})
	if err != nil {
		writeError(c, err, "update profile failed")
		return
	}
	response.OK(c, user)
}

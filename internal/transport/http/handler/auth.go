package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,max=20"`
}

type VerifyOTPRequest struct {
	Session string `json:"session" binding:"required"`
	OTP     string `json:"otp" binding:"required,len=6"`
}

type GoogleLoginRequest struct {
	GoogleToken string `json:"google_token" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	challenge, err := h.authService.SendOTP(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		writeError(c, err, "send otp failed")
		return
	}
	response.OK(c, challenge)
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), req.Session, req.OTP)
	if err != nil {
		writeError(c, err, "verify otp failed")
		return
	}
	response.OK(c, result)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.GoogleLogin(c.Request.Context(), req.GoogleToken)
	if err != nil {
		writeError(c, err, "google login failed")
		return
	}
	response.OK(c, result)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "fetch current user failed")
		return
	}
	response.OK(c, user)
}

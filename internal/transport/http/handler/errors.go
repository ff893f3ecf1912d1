package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/cache"
	"fitora-backend/internal/transport/http/middleware"
	"fitora-backend/internal/transport/http/response"
)

// writeError maps service errors to HTTP responses. Anything unrecognized is
// a 500 carrying fallback as the message; the cause is attached to the gin
// context for the access log.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrMessageEmpty),
		errors.Is(err, app.ErrMessageTooLong),
		errors.Is(err, app.ErrOTPInvalid),
		errors.Is(err, app.ErrOTPExpired),
		errors.Is(err, app.ErrUnknownNutrient),
		errors.Is(err, app.ErrRequestNotPending):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrProfileIncomplete):
		response.Error(c, http.StatusBadRequest, response.CodeProfileIncomplete, err.Error())
	case errors.Is(err, app.ErrGoogleToken), errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrAccountDisabled):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrDailyLimitNotFound),
		errors.Is(err, app.ErrMealNotFound),
		errors.Is(err, app.ErrGroupNotFound),
		errors.Is(err, app.ErrRequestNotFound),
		errors.Is(err, app.ErrClientNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrRequestExists):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, app.ErrImageTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, app.ErrImageType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedMedia, err.Error())
	case errors.Is(err, app.ErrMealAnalysis):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, err.Error())
	case errors.Is(err, cache.ErrOTPUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "verification temporarily unavailable")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return userID, ok
}

func pathID(c *gin.Context, name string) (uint, bool) {
	return parseID(c, name, c.Param(name))
}

func parseID(c *gin.Context, name, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

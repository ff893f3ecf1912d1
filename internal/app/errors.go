package app

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageTooLong  = errors.New("message content is too long")

	ErrOTPInvalid         = errors.New("invalid otp code")
	ErrOTPExpired         = errors.New("otp session expired or not found")
	ErrGoogleToken        = errors.New("invalid google token")
	ErrInvalidCredential  = errors.New("invalid phone number or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileIncomplete  = errors.New("profile survey is incomplete")
	ErrDailyLimitNotFound = errors.New("daily limits not generated yet")
	ErrUnknownNutrient    = errors.New("unknown nutrient")

	ErrMealNotFound      = errors.New("meal not found")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrImageType         = errors.New("unsupported image type")
	ErrGroupNotFound     = errors.New("group not found")
	ErrRequestNotFound   = errors.New("client request not found")
	ErrRequestExists     = errors.New("client request already exists")
	ErrRequestNotPending = errors.New("client request is not pending")
	ErrClientNotFound    = errors.New("client not found")
)

package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fitora-backend/internal/cache"
	"fitora-backend/internal/model"
	"fitora-backend/internal/pkg/jwtutil"
	"fitora-backend/internal/platform/google"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/platform/sms"
	"fitora-backend/internal/repository"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// GoogleVerifier checks a Google sign-in token.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Identity, error)
}

type AuthService struct {
	userRepo      *repository.UserRepository
	otpStore      *cache.OTPStore
	smsSender     sms.Sender
	google        GoogleVerifier
	jwtSecret     string
	jwtExpiration time.Duration
	log           *logger.Logger
	hashCost      int
}

type OTPChallenge struct {
	Session   string `json:"session"`
	ExpiresIn int    `json:"expires_in"`
}

type AuthResult struct {
	Token     string      `json:"access_token"`
	User      *model.User `json:"user"`
	IsNewUser bool        `json:"is_new_user"`
}

func NewAuthService(
	userRepo *repository.UserRepository,
	otpStore *cache.OTPStore,
	smsSender sms.Sender,
	googleVerifier GoogleVerifier,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		otpStore:      otpStore,
		smsSender:     smsSender,
		google:        googleVerifier,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log.With("component", "app.AuthService"),
		hashCost:      bcrypt.DefaultCost,
	}
}

// SendOTP generates a 6-digit code, stores its hash and texts it to the phone.
func (s *AuthService) SendOTP(ctx context.Context, phoneNumber string) (*OTPChallenge, error) {
	phone := normalizePhone(phoneNumber)
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidInput
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp failed: %w", err)
	}

	session := uuid.NewString()
	if err := s.otpStore.Save(ctx, session, cache.OTPEntry{PhoneNumber: phone, CodeHash: string(hash)}); err != nil {
		return nil, err
	}
	if err := s.smsSender.Send(ctx, phone, fmt.Sprintf("Your Fitora verification code: %s", code)); err != nil {
		_ = s.otpStore.Delete(ctx, session)
		return nil, fmt.Errorf("send otp failed: %w", err)
	}

	s.log.Info("otp sent", "phone_number", maskPhone(phone))
	return &OTPChallenge{Session: session, ExpiresIn: int(s.otpStore.TTL().Seconds())}, nil
}

// VerifyOTP checks the code, then signs the user in, creating the account on
// first login.
func (s *AuthService) VerifyOTP(ctx context.Context, session, code string) (*AuthResult, error) {
	session = strings.TrimSpace(session)
	code = strings.TrimSpace(code)
	if session == "" || len(code) != 6 {
		return nil, ErrInvalidInput
	}

	entry, err := s.otpStore.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.CodeHash), []byte(code)); err != nil {
		return nil, ErrOTPInvalid
	}
	if err := s.otpStore.Delete(ctx, session); err != nil {
		s.log.Warn("delete used otp failed", "error", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, entry.PhoneNumber)
	if err != nil {
		return nil, err
	}
	isNew := false
	if user == nil {
		phone := entry.PhoneNumber
		user = &model.User{PhoneNumber: &phone}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		isNew = true
		s.log.Info("user registered by phone", "user_id", user.ID)
	}
	return s.issue(user, isNew)
}

func (s *AuthService) GoogleLogin(ctx context.Context, googleToken string) (*AuthResult, error) {
	if strings.TrimSpace(googleToken) == "" {
		return nil, ErrInvalidInput
	}
	identity, err := s.google.Verify(ctx, googleToken)
	if err != nil {
		s.log.Warn("google token rejected", "error", err)
		return nil, ErrGoogleToken
	}

	user, err := s.userRepo.GetByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, err
	}
	isNew := false
	if user == nil {
		subject := identity.Subject
		user = &model.User{
			GoogleID:  &subject,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		}
		if identity.Email != "" {
			email := strings.ToLower(identity.Email)
			user.Email = &email
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		isNew = true
		s.log.Info("user registered by google", "user_id", user.ID)
	} else if identity.Email != "" && (user.Email == nil || *user.Email != strings.ToLower(identity.Email)) {
		email := strings.ToLower(identity.Email)
		user.Email = &email
		if err := s.userRepo.Save(ctx, user); err != nil {
			return nil, err
		}
	}
	return s.issue(user, isNew)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User, isNew bool) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, jwtutil.RoleUser)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user, IsNewUser: isNew}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp failed: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizePhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(phone))
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fitora-backend/internal/model"
	"fitora-backend/internal/pkg/jwtutil"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
)

const (
	groupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groupCodeLength   = 8
	groupCodeAttempts = 5
	clientMealsShown  = 20
)

type DietologistService struct {
	dietologistRepo *repository.DietologistRepository
	groupRepo       *repository.GroupRepository
	requestRepo     *repository.ClientRequestRepository
	userRepo        *repository.UserRepository
	limitRepo       *repository.DailyLimitRepository
	mealRepo        *repository.MealRepository
	jwtSecret       string
	jwtExpiration   time.Duration
	log             *logger.Logger
	now             func() time.Time
}

type DietologistLoginResult struct {
	Token       string             `json:"access_token"`
	Dietologist *model.Dietologist `json:"dietologist"`
}

type ClientDetail struct {
	User        *model.User       `json:"user"`
	DailyLimit  *model.DailyLimit `json:"daily_limit"`
	RecentMeals []model.Meal      `json:"recent_meals"`
}

func NewDietologistService(
	dietologistRepo *repository.DietologistRepository,
	groupRepo *repository.GroupRepository,
	requestRepo *repository.ClientRequestRepository,
	userRepo *repository.UserRepository,
	limitRepo *repository.DailyLimitRepository,
	mealRepo *repository.MealRepository,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *logger.Logger,
) *DietologistService {
	return &DietologistService{
		dietologistRepo: dietologistRepo,
		groupRepo:       groupRepo,
		requestRepo:     requestRepo,
		userRepo:        userRepo,
		limitRepo:       limitRepo,
		mealRepo:        mealRepo,
		jwtSecret:       jwtSecret,
		jwtExpiration:   jwtExpiration,
		log:             log.With("component", "app.DietologistService"),
		now:             time.Now,
	}
}

func (s *DietologistService) Login(ctx context.Context, phoneNumber, password string) (*DietologistLoginResult, error) {
	phone := normalizePhone(phoneNumber)
	if phone == "" || password == "" {
		return nil, ErrInvalidInput
	}

	d, err := s.dietologistRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !d.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := s.dietologistRepo.TouchLastLogin(ctx, d.ID, now); err != nil {
		s.log.Warn("record dietologist login failed", "dietologist_id", d.ID, "error", err)
	}
	d.LastLoginAt = &now

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, d.ID, jwtutil.RoleDietologist)
	if err != nil {
		return nil, err
	}
	return &DietologistLoginResult{Token: token, Dietologist: d}, nil
}

// CreateGroup creates a group with a fresh join code.
func (s *DietologistService) CreateGroup(ctx context.Context, dietologistID uint, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if dietologistID == 0 || name == "" || len(name) > 100 {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < groupCodeAttempts; attempt++ {
		code, err := generateGroupCode()
		if err != nil {
			return nil, err
		}
		existing, err := s.groupRepo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		group := &model.Group{DietologistID: dietologistID, Name: name, Code: code}
		if err := s.groupRepo.Create(ctx, group); err != nil {
			return nil, err
		}
		return group, nil
	}
	return nil, fmt.Errorf("no free group code after %d attempts", groupCodeAttempts)
}

func (s *DietologistService) ListGroups(ctx context.Context, dietologistID uint) ([]model.Group, error) {
	return s.groupRepo.ListByDietologistID(ctx, dietologistID)
}

func (s *DietologistService) RenameGroup(ctx context.Context, dietologistID, groupID uint, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidInput
	}
	group, err := s.groupRepo.GetByIDAndDietologistID(ctx, groupID, dietologistID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	group.Name = name
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// RequestJoin files a pending request from a user to the group with the code.
func (s *DietologistService) RequestJoin(ctx context.Context, userID uint, code string) (*model.ClientRequest, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if userID == 0 || code == "" {
		return nil, ErrInvalidInput
	}
	group, err := s.groupRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	exists, err := s.requestRepo.Exists(ctx, userID, group.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRequestExists
	}

	req := &model.ClientRequest{UserID: userID, GroupID: group.ID, Status: model.RequestPending}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info("client request filed", "user_id", userID, "group_id", group.ID)
	return req, nil
}

func (s *DietologistService) ListRequests(ctx context.Context, dietologistID uint, status string) ([]model.ClientRequest, error) {
	if status != "" && status != model.RequestPending && status != model.RequestApproved && status != model.RequestRejected {
		return nil, ErrInvalidInput
	}
	return s.requestRepo.ListByDietologistID(ctx, dietologistID, status)
}

// RespondRequest approves or rejects a pending request in one of the
// dietologist's own groups.
func (s *DietologistService) RespondRequest(ctx context.Context, dietologistID, requestID uint, approve bool) (*model.ClientRequest, error) {
	req, err := s.requestRepo.GetByIDAndDietologistID(ctx, requestID, dietologistID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != model.RequestPending {
		return nil, ErrRequestNotPending
	}

	status := model.RequestRejected
	if approve {
		status = model.RequestApproved
	}
	now := s.now()
	if err := s.requestRepo.UpdateStatus(ctx, req.ID, status, now); err != nil {
		return nil, err
	}
	req.Status = status
	req.RespondedAt = &now
	return req, nil
}

func (s *DietologistService) ListClients(ctx context.Context, dietologistID uint) ([]model.User, error) {
	ids, err := s.requestRepo.ApprovedUserIDs(ctx, dietologistID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByIDs(ctx, ids)
}

func (s *DietologistService) ClientDetail(ctx context.Context, dietologistID, userID uint) (*ClientDetail, error) {
	ids, err := s.requestRepo.ApprovedUserIDs(ctx, dietologistID)
	if err != nil {
		return nil, err
	}
	approved := false
	for _, id := range ids {
		if id == userID {
			approved = true
			break
		}
	}
	if !approved {
		return nil, ErrClientNotFound
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrClientNotFound
	}
	limit, err := s.limitRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	meals, err := s.mealRepo.ListByUserID(ctx, userID, clientMealsShown)
	if err != nil {
		return nil, err
	}
	return &ClientDetail{User: user, DailyLimit: limit, RecentMeals: meals}, nil
}

func generateGroupCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(groupCodeAlphabet)))
	for i := 0; i < groupCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate group code failed: %w", err)
		}
		b.WriteByte(groupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

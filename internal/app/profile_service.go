package app

import (
	"context"
	"strings"
	"time"

	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
)

// JobPublisher enqueues background work.
type JobPublisher interface {
	Publish(ctx context.Context, job interface{}) error
}

type ProfileService struct {
	userRepo  *repository.UserRepository
	publisher JobPublisher
	log       *logger.Logger
}

// UpdateProfileInput carries optional fields; nil means unchanged.
type UpdateProfileInput struct {
	FirstName        *string
	LastName         *string
	Gender           *string
	DateOfBirth      *string
	CurrentHeight    *float64
	CurrentWeight    *float64
	TargetWeight     *float64
	ActivenessLevel  *string
	Goal             *string
	PreferredDiet    *string
	DietRestrictions []string
}

func NewProfileService(userRepo *repository.UserRepository, publisher JobPublisher, log *logger.Logger) *ProfileService {
	return &ProfileService{
		userRepo:  userRepo,
		publisher: publisher,
		log:       log.With("component", "app.ProfileService"),
	}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Update validates and saves the profile. Once the survey is complete a
// daily-limit recalculation is queued; a failed publish is only logged.
func (s *ProfileService) Update(ctx context.Context, userID uint, input UpdateProfileInput) (*model.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, input); err != nil {
		return nil, err
	}
	user.ProfileCompleted = user.SurveyComplete()

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if user.ProfileCompleted && s.publisher != nil {
		if err := s.publisher.Publish(ctx, DailyLimitJob{UserID: user.ID}); err != nil {
			s.log.Warn("queue daily limit recalculation failed", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

func applyProfile(user *model.User, in UpdateProfileInput) error {
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Gender != nil {
		if *in.Gender != model.GenderMale && *in.Gender != model.GenderFemale {
			return ErrInvalidInput
		}
		user.Gender = *in.Gender
	}
	if in.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *in.DateOfBirth)
		if err != nil || dob.After(time.Now()) {
			return ErrInvalidInput
		}
		user.DateOfBirth = &dob
	}
	for _, v := range []*float64{in.CurrentHeight, in.CurrentWeight, in.TargetWeight} {
		if v != nil && *v <= 0 {
			return ErrInvalidInput
		}
	}
	if in.CurrentHeight != nil {
		user.CurrentHeight = in.CurrentHeight
	}
	if in.CurrentWeight != nil {
		user.CurrentWeight = in.CurrentWeight
	}
	if in.TargetWeight != nil {
		user.TargetWeight = in.TargetWeight
	}
	if in.ActivenessLevel != nil {
		if !model.Contains(model.ActivenessLevels, *in.ActivenessLevel) {
			return ErrInvalidInput
		}
		user.ActivenessLevel = *in.ActivenessLevel
	}
	if in.Goal != nil {
		if !model.Contains(model.Goals, *in.Goal) {
			return ErrInvalidInput
		}
		user.Goal = *in.Goal
	}
	if in.PreferredDiet != nil {
		if !model.Contains(model.Diets, *in.PreferredDiet) {
			return ErrInvalidInput
		}
		user.PreferredDiet = *in.PreferredDiet
	}
	if in.DietRestrictions != nil {
		restrictions := make([]string, 0, len(in.DietRestrictions))
		for _, r := range in.DietRestrictions {
			if r = strings.TrimSpace(r); r != "" {
				restrictions = append(restrictions, r)
			}
		}
		user.DietRestrictions = restrictions
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/testutil"
)

type recordingPublisher struct {
	jobs []interface{}
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, job interface{}) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func ptr[T any](v T) *T { return &v }

func TestProfileUpdateQueuesRecalculationWhenComplete(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	pub := &recordingPublisher{}
	svc := NewProfileService(users, pub, logger.NewNop())
	ctx := context.Background()

	user := &model.User{}
	require.NoError(t, users.Create(ctx, user))

	partial, err := svc.Update(ctx, user.ID, UpdateProfileInput{FirstName: ptr("  Dana "), Gender: ptr(model.GenderFemale)})
	require.NoError(t, err)
	assert.Equal(t, "Dana", partial.FirstName)
	assert.False(t, partial.ProfileCompleted)
	assert.Empty(t, pub.jobs)

	full, err := svc.Update(ctx, user.ID, UpdateProfileInput{
		DateOfBirth:      ptr("1995-02-01"),
		CurrentHeight:    ptr(168.0),
		CurrentWeight:    ptr(61.0),
		ActivenessLevel:  ptr("very_active"),
		Goal:             ptr("maintain_weight"),
		PreferredDiet:    ptr("keto"),
		DietRestrictions: []string{"gluten", " "},
	})
	require.NoError(t, err)
	assert.True(t, full.ProfileCompleted)
	assert.Equal(t, []string{"gluten"}, []string(full.DietRestrictions))
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, DailyLimitJob{UserID: user.ID}, pub.jobs[0])

	stored, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.ProfileCompleted)
}

func TestProfileUpdateValidatesEnums(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	svc := NewProfileService(users, nil, logger.NewNop())
	ctx := context.Background()
	user := &model.User{}
	require.NoError(t, users.Create(ctx, user))

	cases := []UpdateProfileInput{
		{Gender: ptr("other")},
		{Goal: ptr("get_rich")},
		{ActivenessLevel: ptr("couch")},
		{PreferredDiet: ptr("carnivore")},
		{DateOfBirth: ptr("01/02/1990")},
		{CurrentWeight: ptr(-3.0)},
	}
	for _, in := range cases {
		_, err := svc.Update(ctx, user.ID, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	_, err := svc.Update(ctx, 999, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileUpdateSurvivesPublishFailure(t *testing.T) {
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewProfileService(users, pub, logger.NewNop())
	ctx := context.Background()
	user := surveyedUser(t, users)

	out, err := svc.Update(ctx, user.ID, UpdateProfileInput{TargetWeight: ptr(78.0)})
	require.NoError(t, err)
	assert.True(t, out.ProfileCompleted)
	assert.Len(t, pub.jobs, 1)
}

package app

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fitora-backend/internal/model"
	"fitora-backend/internal/pkg/jwtutil"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/repository"
	"fitora-backend/internal/testutil"
)

type dietologistFixture struct {
	svc   *DietologistService
	users *repository.UserRepository
	meals *repository.MealRepository
	dieto *model.Dietologist
}

func newDietologistFixture(t *testing.T) *dietologistFixture {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()

	dietoRepo := repository.NewDietologistRepository(db)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	d := &model.Dietologist{PhoneNumber: "+15551112222", FirstName: "Maya", LastName: "Lin", PasswordHash: string(hash), IsActive: true}
	require.NoError(t, dietoRepo.Create(ctx, d))

	users := repository.NewUserRepository(db)
	meals := repository.NewMealRepository(db)
	svc := NewDietologistService(
		dietoRepo,
		repository.NewGroupRepository(db),
		repository.NewClientRequestRepository(db),
		users,
		repository.NewDailyLimitRepository(db),
		meals,
		"secret",
		time.Hour,
		logger.NewNop(),
	)
	return &dietologistFixture{svc: svc, users: users, meals: meals, dieto: d}
}

func TestDietologistLogin(t *testing.T) {
	f := newDietologistFixture(t)
	ctx := context.Background()

	out, err := f.svc.Login(ctx, "+1 555 111 2222", "correct horse")
	require.NoError(t, err)
	require.NotNil(t, out.Dietologist.LastLoginAt)
	claims, err := jwtutil.ParseToken("secret", out.Token)
	require.NoError(t, err)
	assert.Equal(t, jwtutil.RoleDietologist, claims.Role)
	assert.Equal(t, f.dieto.ID, claims.UserID)

	_, err = f.svc.Login(ctx, "+15551112222", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = f.svc.Login(ctx, "+15550000000", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGroupCodesAndRename(t *testing.T) {
	f := newDietologistFixture(t)
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, f.dieto.ID, "Morning clients")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), g.Code)

	renamed, err := f.svc.RenameGroup(ctx, f.dieto.ID, g.ID, "Early birds")
	require.NoError(t, err)
	assert.Equal(t, "Early birds", renamed.Name)

	_, err = f.svc.RenameGroup(ctx, f.dieto.ID+1, g.ID, "Hijack")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	groups, err := f.svc.ListGroups(ctx, f.dieto.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	_, err = f.svc.CreateGroup(ctx, f.dieto.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClientRequestLifecycle(t *testing.T) {
	f := newDietologistFixture(t)
	ctx := context.Background()

	group, err := f.svc.CreateGroup(ctx, f.dieto.ID, "Clients")
	require.NoError(t, err)
	user := &model.User{FirstName: "Sam"}
	require.NoError(t, f.users.Create(ctx, user))

	_, err = f.svc.RequestJoin(ctx, user.ID, "NOPE1234")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	req, err := f.svc.RequestJoin(ctx, user.ID, " "+group.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)

	_, err = f.svc.RequestJoin(ctx, user.ID, group.Code)
	assert.ErrorIs(t, err, ErrRequestExists)

	pending, err := f.svc.ListRequests(ctx, f.dieto.ID, model.RequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.svc.ClientDetail(ctx, f.dieto.ID, user.ID)
	assert.ErrorIs(t, err, ErrClientNotFound, "pending clients are not visible")

	_, err = f.svc.RespondRequest(ctx, f.dieto.ID+1, req.ID, true)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	approved, err := f.svc.RespondRequest(ctx, f.dieto.ID, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, approved.Status)

	_, err = f.svc.RespondRequest(ctx, f.dieto.ID, req.ID, false)
	assert.ErrorIs(t, err, ErrRequestNotPending)

	require.NoError(t, f.meals.Create(ctx, &model.Meal{UserID: user.ID, ObjectName: "meals/user_x/1.jpg", ContentType: "image/jpeg", Size: 1}))

	clients, err := f.svc.ListClients(ctx, f.dieto.ID)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Sam", clients[0].FirstName)

	detail, err := f.svc.ClientDetail(ctx, f.dieto.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.DailyLimit)
	assert.Len(t, detail.RecentMeals, 1)

	_, err = f.svc.ListRequests(ctx, f.dieto.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitora-backend/internal/model"
	"fitora-backend/internal/testutil"
)

func TestMessageRepositoryRecentWindowIsChronological(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &model.Message{
			SessionID: 1,
			UserID:    1,
			Author:    model.AuthorUser,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := repo.ListRecentBySessionID(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m2", "m3", "m4"}, []string{got[0].Content, got[1].Content, got[2].Content})

	none, err := repo.ListRecentBySessionID(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	latest, err := repo.LatestByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "m4", latest.Content)

	missing, err := repo.LatestByUserID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepositorySummariesAndDelete(t *testing.T) {
	db := testutil.DB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s1 := &model.Session{UserID: 1, Title: "first", CreatedAt: time.Now().Add(-time.Hour)}
	s2 := &model.Session{UserID: 1, Title: "second"}
	other := &model.Session{UserID: 2, Title: "someone else"}
	require.NoError(t, sessions.Create(ctx, s1))
	require.NoError(t, sessions.Create(ctx, s2))
	require.NoError(t, sessions.Create(ctx, other))

	firstAt := time.Now().Add(-30 * time.Minute).UTC()
	lastAt := firstAt.Add(5 * time.Minute)
	require.NoError(t, messages.Create(ctx, &model.Message{SessionID: s1.ID, UserID: 1, Author: model.AuthorUser, Content: "a", CreatedAt: firstAt}))
	require.NoError(t, messages.Create(ctx, &model.Message{SessionID: s1.ID, UserID: 1, Author: model.AuthorAI, Content: "b", CreatedAt: lastAt}))

	summaries, err := sessions.ListSummariesByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "second", summaries[0].Title)
	assert.Zero(t, summaries[0].MessageCount)
	assert.Nil(t, summaries[0].LastMessageAt)
	assert.EqualValues(t, 2, summaries[1].MessageCount)
	require.NotNil(t, summaries[1].LastMessageAt)
	assert.WithinDuration(t, lastAt, *summaries[1].LastMessageAt, time.Second)

	foreign, err := sessions.GetByIDAndUserID(ctx, other.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, foreign)

	require.NoError(t, sessions.DeleteWithMessages(ctx, s1.ID, 1))
	gone, err := sessions.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	left, err := messages.ListBySessionID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAggregateTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	var fromText aggregateTime
	require.NoError(t, fromText.Scan("2026-03-04 05:06:07+00:00"))
	require.NotNil(t, fromText.ptr())
	assert.True(t, want.Equal(*fromText.ptr()))

	var fromTime aggregateTime
	require.NoError(t, fromTime.Scan(want))
	assert.True(t, want.Equal(*fromTime.ptr()))

	var empty aggregateTime
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty.ptr())

	var bad aggregateTime
	assert.Error(t, bad.Scan("yesterday"))
}

func TestDailyLimitRepositoryUpsert(t *testing.T) {
	db := testutil.DB(t)
	repo := NewDailyLimitRepository(db)
	ctx := context.Background()

	first, created, err := repo.Upsert(ctx, 5, []model.NutrientNorm{{Name: "calories", DailyNorm: 2000}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(5), first.UserID)

	second, created, err := repo.Upsert(ctx, 5, []model.NutrientNorm{{Name: "calories", DailyNorm: 2400}})
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByUserID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Nutrients, 1)
	assert.Equal(t, 2400.0, stored.Nutrients[0].DailyNorm)
	assert.Equal(t, second.UserID, stored.UserID)
}

func TestMealRepositoryScopedByUser(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMealRepository(db)
	ctx := context.Background()

	meal := &model.Meal{UserID: 1, ObjectName: "meals/user_1/a.jpg", ContentType: "image/jpeg", Size: 10}
	require.NoError(t, repo.Create(ctx, meal))

	got, err := repo.GetByIDAndUserID(ctx, meal.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := repo.ListByUserID(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteByIDAndUserID(ctx, meal.ID, 1))
	list, err = repo.ListByUserID(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClientRequestRepositoryScopedByDietologist(t *testing.T) {
	db := testutil.DB(t)
	groups := NewGroupRepository(db)
	requests := NewClientRequestRepository(db)
	ctx := context.Background()

	mine := &model.Group{DietologistID: 1, Name: "Morning", Code: "AAAA1111"}
	theirs := &model.Group{DietologistID: 2, Name: "Evening", Code: "BBBB2222"}
	require.NoError(t, groups.Create(ctx, mine))
	require.NoError(t, groups.Create(ctx, theirs))

	r1 := &model.ClientRequest{UserID: 10, GroupID: mine.ID, Status: model.RequestPending}
	r2 := &model.ClientRequest{UserID: 11, GroupID: theirs.ID, Status: model.RequestPending}
	require.NoError(t, requests.Create(ctx, r1))
	require.NoError(t, requests.Create(ctx, r2))

	exists, err := requests.Exists(ctx, 10, mine.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	pending, err := requests.ListByDietologistID(ctx, 1, model.RequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint(10), pending[0].UserID)

	foreign, err := requests.GetByIDAndDietologistID(ctx, r2.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, foreign)

	require.NoError(t, requests.UpdateStatus(ctx, r1.ID, model.RequestApproved, time.Now()))
	ids, err := requests.ApprovedUserIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{10}, ids)

	byCode, err := groups.GetByCode(ctx, "BBBB2222")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, uint(2), byCode.DietologistID)
}

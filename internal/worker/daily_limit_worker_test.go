package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fitora-backend/internal/app"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
)

type stubGenerator struct {
	err   error
	calls []uint
}

func (g *stubGenerator) Generate(_ context.Context, userID uint) (*model.DailyLimit, bool, error) {
	g.calls = append(g.calls, userID)
	if g.err != nil {
		return nil, false, g.err
	}
	return &model.DailyLimit{UserID: userID}, true, nil
}

func TestHandleOutcomes(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name        string
		body        string
		err         error
		redelivered bool
		want        outcome
	}{
		{name: "ok", body: `{"user_id": 7}`, want: ack},
		{name: "garbage", body: `not json`, want: drop},
		{name: "missing user", body: `{}`, want: drop},
		{name: "unknown user", body: `{"user_id": 7}`, err: app.ErrUserNotFound, want: drop},
		{name: "incomplete survey", body: `{"user_id": 7}`, err: app.ErrProfileIncomplete, want: drop},
		{name: "transient", body: `{"user_id": 7}`, err: errors.New("db gone"), want: retry},
		{name: "transient twice", body: `{"user_id": 7}`, err: errors.New("db gone"), redelivered: true, want: drop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGenerator{err: tc.err}
			w := NewDailyLimitWorker(nil, gen, "daily_limit.recalculate", logger.NewNop())
			assert.Equal(t, tc.want, w.handle(ctx, []byte(tc.body), tc.redelivered))
		})
	}
}

func TestHandlePassesUserID(t *testing.T) {
	gen := &stubGenerator{}
	w := NewDailyLimitWorker(nil, gen, "q", logger.NewNop())
	w.handle(context.Background(), []byte(`{"user_id": 12}`), false)
	assert.Equal(t, []uint{12}, gen.calls)
}

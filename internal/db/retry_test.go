package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

func duplicateKeyError(id utils.SixID) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.books index: _id_ dup key: " + id.String(),
	}}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	calls := 0
	err := Try(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_NonRetryableError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Try(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	calls := 0
	err := WithRetries(context.Background(), func() error {
		calls++
		return duplicateKeyError(utils.SixID{0, 0, 0, 0, 0, 1})
	}, 2, mongo.IsDuplicateKeyError)

	require.Error(t, err)
	assert.True(t, mongo.IsDuplicateKeyError(err))
	assert.Equal(t, 3, calls)
}

func TestWithRetries_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Try(ctx, func() error {
		calls++
		return duplicateKeyError(utils.SixID{})
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_CollisionResolves(t *testing.T) {
	original := utils.NewSixIDHook
	defer func() { utils.NewSixIDHook = original }()

	taken := utils.SixID{1, 2, 3, 4, 5, 1}
	fresh := utils.SixID{1, 2, 3, 4, 5, 2}
	queue := []utils.SixID{taken, taken, fresh}
	utils.NewSixIDHook = func() (utils.SixID, bool) {
		if len(queue) == 0 {
			return utils.SixID{}, false
		}
		id := queue[0]
		queue = queue[1:]
		return id, true
	}

	inserted := map[utils.SixID]bool{taken: true}
	calls := 0
	err := Try(context.Background(), func() error {
		calls++
		id := utils.NewSixID()
		if inserted[id] {
			return duplicateKeyError(id)
		}
		inserted[id] = true
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, inserted[fresh])
	assert.Empty(t, queue)
}

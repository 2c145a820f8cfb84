//go:build integration

package operational_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"propcheck/internal/deficiency/models"
	"propcheck/internal/deficiency/store/operational"
	"propcheck/pkg/platform/sentinel"
	"propcheck/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *operational.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = operational.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func item(id, itemID string) *models.DeficientItem {
	return &models.DeficientItem{
		ID:         id,
		Property:   "prop-1",
		Inspection: "insp-1",
		Item:       itemID,
		State:      models.StateRequiresAction,
		ItemScore:  10,
	}
}

func (s *RedisStoreSuite) TestCreateGetAndList() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, item("di-1", "item-a")))
	s.Require().NoError(s.store.Create(ctx, item("di-2", "item-b")))

	got, loc, err := s.store.Get(ctx, models.Ref{PropertyID: "prop-1", ID: "di-1"})
	s.Require().NoError(err)
	s.Equal(models.LocationActive, loc)
	s.Equal(10.0, got.ItemScore)

	items, err := s.store.FindAllByProperty(ctx, "prop-1")
	s.Require().NoError(err)
	s.Len(items, 2)
	s.Equal("di-1", items[0].ID)
}

func (s *RedisStoreSuite) TestDuplicateClaimConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, item("di-1", "item-a")))
	s.ErrorIs(s.store.Create(ctx, item("di-2", "item-a")), sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestMoveArchivesAndRestores() {
	ctx := context.Background()
	di := item("di-1", "item-a")
	s.Require().NoError(s.store.Create(ctx, di))

	di.Archive = true
	s.Require().NoError(s.store.Move(ctx, di, true))
	_, loc, err := s.store.Get(ctx, di.Ref())
	s.Require().NoError(err)
	s.Equal(models.LocationArchived, loc)
	s.ErrorIs(s.store.Update(ctx, di), sentinel.ErrNotFound)

	items, err := s.store.FindAllByProperty(ctx, "prop-1")
	s.Require().NoError(err)
	s.Empty(items)

	di.Archive = false
	s.Require().NoError(s.store.Move(ctx, di, false))
	got, loc, err := s.store.Get(ctx, di.Ref())
	s.Require().NoError(err)
	s.Equal(models.LocationActive, loc)
	s.False(got.Archive)
}

// Concurrent archive requests for one record move it exactly once.
func (s *RedisStoreSuite) TestConcurrentMoveMovesOnce() {
	ctx := context.Background()
	di := item("di-1", "item-a")
	s.Require().NoError(s.store.Create(ctx, di))

	const goroutines = 20
	var wg sync.WaitGroup
	var moved atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Move(ctx, di, true); err == nil {
				moved.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), moved.Load())
}

// A claim whose holder is no longer active is taken over by exactly one of
// several concurrent creates.
func (s *RedisStoreSuite) TestConcurrentStaleClaimTakeoverHasOneWinner() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "deficiency:item:insp-1:item-a", "di-gone", 0).Err())

	const goroutines = 20
	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.store.Create(ctx, item(fmt.Sprintf("di-%d", n), "item-a"))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	items, err := s.store.FindAllByProperty(ctx, "prop-1")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	holder, err := s.store.ClaimHolder(ctx, "insp-1", "item-a")
	s.Require().NoError(err)
	s.Equal(items[0].ID, holder)
}

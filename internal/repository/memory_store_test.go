package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/pkg/database"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

func TestMemoryStorePersons(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(fastRetry)

	a := &models.Person{Username: "gwashington", Firstname: "George", Lastname: "Washington", Email: "gw@example.com", IsMember: true, Active: true}
	b := &models.Person{Username: "bfranklin", Firstname: "Ben", Lastname: "Franklin", Email: "bf@example.com", Active: true}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))
	assert.ErrorIs(t, store.Create(ctx, &models.Person{Username: "GWashington"}), appErrors.ErrConflict)

	found, err := store.FindByLogin(ctx, "GW@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	member := true
	list, total, err := store.List(ctx, models.PersonFilter{Member: &member})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "gwashington", list[0].Username)

	require.NoError(t, store.Deactivate(ctx, b.ID, time.Now()))
	found, err = store.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)
	assert.NotNil(t, found.Left)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryStoreTransactionIsolatesReads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(fastRetry)
	e := &models.Election{Kind: models.ElectionKindBoard, Position: "Board"}
	require.NoError(t, store.CreateElection(ctx, e))

	err := store.RunInTransaction(ctx, func(ctx context.Context, tx ElectionTx) error {
		got, err := tx.FindElection(ctx, e.ID)
		if err != nil {
			return err
		}
		got.Votes = append(got.Votes, "x")
		return appErrors.ErrAlreadyVoted
	})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyVoted)

	stored, err := store.FindElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Votes)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryStoreStaleWriteConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(database.RetryPolicy{MaxRetries: 0, Backoff: time.Millisecond})
	e := &models.Election{Kind: models.ElectionKindBoard, Position: "Board"}
	require.NoError(t, store.CreateElection(ctx, e))

	err := store.RunInTransaction(ctx, func(ctx context.Context, tx ElectionTx) error {
		got, err := tx.FindElection(ctx, e.ID)
		if err != nil {
			return err
		}
		// A second writer commits between the read and the write.
		require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, inner ElectionTx) error {
			other, err := inner.FindElection(ctx, e.ID)
			if err != nil {
				return err
			}
			other.Voters = append(other.Voters, "m2")
			return inner.SaveRolls(ctx, other)
		}))
		got.Voters = append(got.Voters, "m1")
		return tx.SaveRolls(ctx, got)
	})
	assert.ErrorIs(t, err, appErrors.ErrTransactionConflict)

	stored, err := store.FindElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, stored.Voters)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryStoreConcurrentAppendsAllLand(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(database.RetryPolicy{MaxRetries: 1000, Backoff: time.Microsecond})
	e := &models.Election{Kind: models.ElectionKindBoard, Position: "Board"}
	require.NoError(t, store.CreateElection(ctx, e))

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.RunInTransaction(ctx, func(ctx context.Context, tx ElectionTx) error {
				got, err := tx.FindElection(ctx, e.ID)
				if err != nil {
					return err
				}
				got.Voters = append(got.Voters, fmt.Sprintf("m%d", i))
				return tx.SaveRolls(ctx, got)
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := store.FindElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Voters, writers)
	assert.Equal(t, int64(writers+1), stored.Version)
}

func TestMemoryStoreListElectionsEndingAfter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(fastRetry)
	now := time.Now()
	old := &models.Election{Position: "Old", Schedule: models.Schedule{VoteEnd: now.Add(-48 * time.Hour)}}
	recent := &models.Election{Position: "Recent", Schedule: models.Schedule{VoteEnd: now.Add(-time.Hour)}}
	future := &models.Election{Position: "Future", Schedule: models.Schedule{VoteEnd: now.Add(time.Hour)}}
	for _, e := range []*models.Election{future, old, recent} {
		require.NoError(t, store.CreateElection(ctx, e))
	}

	list, err := store.ListElectionsEndingAfter(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Recent", list[0].Position)
	assert.Equal(t, "Future", list[1].Position)
}

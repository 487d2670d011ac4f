package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/pkg/database"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

var electionRowColumns = []string{"id", "kind", "position", "description", "nominate_start", "nominate_end", "vote_start", "vote_end", "nominees", "nominators", "votes", "voters", "version", "created_at", "updated_at"}

var fastRetry = database.RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}

func electionRows(version int64, nominees string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(electionRowColumns).
		AddRow("e1", "OFFICER", "Treasurer", "", now.Add(-time.Hour), now.Add(time.Hour), now.Add(2*time.Hour), now.Add(3*time.Hour), nominees, "{}", "{}", "{}", version, now, now)
}

func TestElectionCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, fastRetry)

	mock.ExpectExec("INSERT INTO elections").WillReturnResult(sqlmock.NewResult(1, 1))

	e := &models.Election{Kind: models.ElectionKindBoard, Position: "Board"}
	require.NoError(t, repo.CreateElection(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(1), e.Version)
	assert.True(t, e.Persisted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElectionFindDecodesRolls(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, fastRetry)

	mock.ExpectQuery(regexp.QuoteMeta("FROM elections WHERE id::text = $1")).
		WithArgs("e1").
		WillReturnRows(electionRows(3, "{b,a}"))

	e, err := repo.FindElection(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, e.Nominees)
	assert.Empty(t, e.Votes)
	assert.Equal(t, models.ElectionKindOfficer, e.Kind)
	assert.Equal(t, int64(3), e.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, fastRetry)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM elections WHERE id::text = $1")).WillReturnRows(electionRows(2, "{}"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE elections SET nominees = $2")).
		WithArgs("e1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var saved *models.Election
	err := repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ElectionTx) error {
		e, err := tx.FindElection(ctx, "e1")
		if err != nil {
			return err
		}
		e.Nominees = append(e.Nominees, "b")
		saved = e
		return tx.SaveRolls(ctx, e)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), saved.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRetriesStaleVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, fastRetry)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("FROM elections").WillReturnRows(electionRows(1, "{}"))
		mock.ExpectExec("UPDATE elections").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()
	}

	attempts := 0
	err := repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ElectionTx) error {
		attempts++
		e, err := tx.FindElection(ctx, "e1")
		if err != nil {
			return err
		}
		return tx.SaveRolls(ctx, e)
	})
	assert.ErrorIs(t, err, appErrors.ErrTransactionConflict)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionMapsSerializationFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, database.RetryPolicy{MaxRetries: 0, Backoff: time.Millisecond})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM elections").WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	err := repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ElectionTx) error {
		_, err := tx.FindElection(ctx, "e1")
		return err
	})
	assert.ErrorIs(t, err, appErrors.ErrTransactionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionDoesNotRetryRuleFailures(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewElectionRepository(db, fastRetry)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ElectionTx) error {
		attempts++
		return appErrors.ErrAlreadyVoted
	})
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyVoted))
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

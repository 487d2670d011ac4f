package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/pkg/database"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

const electionColumns = `id, kind, position, description, nominate_start, nominate_end, vote_start, vote_end, nominees, nominators, votes, voters, version, created_at, updated_at`

// ElectionTx is the view of the store available inside RunInTransaction.
// Reads see one consistent snapshot and SaveRolls only succeeds when the
// election has not been written since it was read.
type ElectionTx interface {
	FindElection(ctx context.Context, id string) (*models.Election, error)
	FindPerson(ctx context.Context, id string) (*models.Person, error)
	SaveRolls(ctx context.Context, election *models.Election) error
}

// TxFunc is a read-validate-write unit run by RunInTransaction.
type TxFunc func(ctx context.Context, tx ElectionTx) error

type electionRow struct {
	ID            string         `db:"id"`
	Kind          string         `db:"kind"`
	Position      string         `db:"position"`
	Description   string         `db:"description"`
	NominateStart time.Time      `db:"nominate_start"`
	NominateEnd   time.Time      `db:"nominate_end"`
	VoteStart     time.Time      `db:"vote_start"`
	VoteEnd       time.Time      `db:"vote_end"`
	Nominees      pq.StringArray `db:"nominees"`
	Nominators    pq.StringArray `db:"nominators"`
	Votes         pq.StringArray `db:"votes"`
	Voters        pq.StringArray `db:"voters"`
	Version       int64          `db:"version"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r electionRow) toModel() *models.Election {
	return &models.Election{
		ID:          r.ID,
		Kind:        models.ElectionKind(r.Kind),
		Position:    r.Position,
		Description: r.Description,
		Schedule: models.Schedule{
			NominateStart: r.NominateStart.UTC(),
			NominateEnd:   r.NominateEnd.UTC(),
			VoteStart:     r.VoteStart.UTC(),
			VoteEnd:       r.VoteEnd.UTC(),
		},
		Nominees:   []string(r.Nominees),
		Nominators: []string(r.Nominators),
		Votes:      []string(r.Votes),
		Voters:     []string(r.Voters),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func rowFromModel(e *models.Election) electionRow {
	return electionRow{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Position:      e.Position,
		Description:   e.Description,
		NominateStart: e.NominateStart,
		NominateEnd:   e.NominateEnd,
		VoteStart:     e.VoteStart,
		VoteEnd:       e.VoteEnd,
		Nominees:      pq.StringArray(nonNil(e.Nominees)),
		Nominators:    pq.StringArray(nonNil(e.Nominators)),
		Votes:         pq.StringArray(nonNil(e.Votes)),
		Voters:        pq.StringArray(nonNil(e.Voters)),
		Version:       e.Version,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ElectionRepository stores elections in postgres.
type ElectionRepository struct {
	db     *sqlx.DB
	policy database.RetryPolicy
}

// NewElectionRepository creates a new instance of ElectionRepository.
func NewElectionRepository(db *sqlx.DB, policy database.RetryPolicy) *ElectionRepository {
	return &ElectionRepository{db: db, policy: policy}
}

// CreateElection inserts a new election at version 1 with empty rolls.
func (r *ElectionRepository) CreateElection(ctx context.Context, election *models.Election) error {
	if election.ID == "" {
		election.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	election.CreatedAt = now
	election.UpdatedAt = now
	election.Version = 1

	const query = `INSERT INTO elections (` + electionColumns + `) VALUES (:id, :kind, :position, :description, :nominate_start, :nominate_end, :vote_start, :vote_end, :nominees, :nominators, :votes, :voters, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rowFromModel(election)); err != nil {
		election.Version = 0
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

// FindElection returns an election by identifier.
func (r *ElectionRepository) FindElection(ctx context.Context, id string) (*models.Election, error) {
	return findElection(ctx, r.db, id)
}

// ListElectionsEndingAfter returns every election whose voting closes at or
// after cutoff, ordered by vote end.
func (r *ElectionRepository) ListElectionsEndingAfter(ctx context.Context, cutoff time.Time) ([]*models.Election, error) {
	const query = `SELECT ` + electionColumns + ` FROM elections WHERE vote_end >= $1 ORDER BY vote_end, position`
	var rows []electionRow
	if err := r.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	elections := make([]*models.Election, 0, len(rows))
	for _, row := range rows {
		elections = append(elections, row.toModel())
	}
	return elections, nil
}

// RunInTransaction runs fn in a repeatable-read transaction. A conflicting
// concurrent writer aborts the attempt and fn is re-run from the start, up to
// the configured number of retries. Errors returned by fn roll back and are
// returned as is.
func (r *ElectionRepository) RunInTransaction(ctx context.Context, fn TxFunc) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	err := database.Retry(ctx, r.policy, isConflict, func(ctx context.Context) error {
		return database.WithTx(ctx, r.db, opts, func(ctx context.Context, tx *sqlx.Tx) error {
			return fn(ctx, &sqlElectionTx{tx: tx})
		})
	})
	if database.IsSerializationFailure(err) {
		return appErrors.Wrap(err, appErrors.ErrTransactionConflict.Code, appErrors.ErrTransactionConflict.Status, appErrors.ErrTransactionConflict.Message)
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, appErrors.ErrTransactionConflict) || database.IsSerializationFailure(err)
}

type sqlElectionTx struct {
	tx *sqlx.Tx
}

func (t *sqlElectionTx) FindElection(ctx context.Context, id string) (*models.Election, error) {
	return findElection(ctx, t.tx, id)
}

func (t *sqlElectionTx) FindPerson(ctx context.Context, id string) (*models.Person, error) {
	var person models.Person
	if err := t.tx.GetContext(ctx, &person, `SELECT `+personColumns+` FROM persons WHERE id::text = $1 LIMIT 1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find person by id: %w", err)
	}
	return &person, nil
}

// SaveRolls writes the four rolls if the stored version still matches and
// bumps the version.
func (t *sqlElectionTx) SaveRolls(ctx context.Context, election *models.Election) error {
	const query = `UPDATE elections SET nominees = $2, nominators = $3, votes = $4, voters = $5, version = version + 1, updated_at = $6 WHERE id = $1 AND version = $7`
	now := time.Now().UTC()
	row := rowFromModel(election)
	res, err := t.tx.ExecContext(ctx, query, row.ID, row.Nominees, row.Nominators, row.Votes, row.Voters, now, row.Version)
	if err != nil {
		return fmt.Errorf("save election rolls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save election rolls: %w", err)
	}
	if n == 0 {
		return appErrors.ErrTransactionConflict
	}
	election.Version++
	election.UpdatedAt = now
	return nil
}

func findElection(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Election, error) {
	const query = `SELECT ` + electionColumns + ` FROM elections WHERE id::text = $1 LIMIT 1`
	var row electionRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find election by id: %w", err)
	}
	return row.toModel(), nil
}

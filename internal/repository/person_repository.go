package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

const uniqueViolation = "23505"

const personColumns = `id, username, firstname, lastname, email, password_hash, is_member, active, admin, starving, rfid, joined, left_on, created_at, updated_at`

// PersonRepository provides database access for the person directory.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository creates a new instance of PersonRepository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// FindByID returns a person by identifier.
func (r *PersonRepository) FindByID(ctx context.Context, id string) (*models.Person, error) {
	return r.findOne(ctx, "find person by id", `SELECT `+personColumns+` FROM persons WHERE id::text = $1 LIMIT 1`, id)
}

// FindByUsername returns a person by username.
func (r *PersonRepository) FindByUsername(ctx context.Context, username string) (*models.Person, error) {
	return r.findOne(ctx, "find person by username", `SELECT `+personColumns+` FROM persons WHERE LOWER(username) = LOWER($1) LIMIT 1`, username)
}

// FindByLogin resolves a login name that may be either a username or an email.
// A username match wins over an email match.
func (r *PersonRepository) FindByLogin(ctx context.Context, login string) (*models.Person, error) {
	const query = `SELECT ` + personColumns + ` FROM persons WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1) ORDER BY (LOWER(username) = LOWER($1)) DESC, created_at LIMIT 1`
	return r.findOne(ctx, "find person by login", query, login)
}

func (r *PersonRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.Person, error) {
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &person, nil
}

// FindByIDs returns the people matching ids. Unknown ids are skipped.
func (r *PersonRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + personColumns + ` FROM persons WHERE id::text = ANY($1)`
	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find persons by ids: %w", err)
	}
	return persons, nil
}

// List returns people based on filters with total count.
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	baseQuery := `FROM persons WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Member != nil {
		conditions = append(conditions, fmt.Sprintf("is_member = $%d", len(args)+1))
		args = append(args, *filter.Member)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(username) LIKE $%d OR LOWER(firstname || ' ' || lastname) LIKE $%d OR LOWER(email) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY lastname, firstname, username LIMIT %d OFFSET %d", personColumns, baseQuery, pageSize, offset)

	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}

	return persons, total, nil
}

// normalizePage clamps paging input to page >= 1 and 1..100 rows.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// Create inserts a new person.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	const query = `INSERT INTO persons (` + personColumns + `) VALUES (:id, :username, :firstname, :lastname, :email, :password_hash, :is_member, :active, :admin, :starving, :rfid, :joined, :left_on, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "username already taken")
		}
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// Update stores the mutable profile fields of a person.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE persons SET username = :username, firstname = :firstname, lastname = :lastname, email = :email, is_member = :is_member, active = :active, admin = :admin, starving = :starving, rfid = :rfid, joined = :joined, left_on = :left_on, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, person)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return expectRow(res, "update person")
}

// UpdatePassword updates the stored password hash.
func (r *PersonRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE persons SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(res, "update password")
}

// Deactivate marks a person inactive and records the leave date. People are
// never removed because elections reference them.
func (r *PersonRepository) Deactivate(ctx context.Context, id string, leftOn time.Time) error {
	const query = `UPDATE persons SET active = FALSE, left_on = COALESCE(left_on, $2), updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, leftOn, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate person: %w", err)
	}
	return expectRow(res, "deactivate person")
}

func expectRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

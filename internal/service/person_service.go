package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

type personRepository interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	FindByUsername(ctx context.Context, username string) (*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	Deactivate(ctx context.Context, id string, leftOn time.Time) error
}

// PersonService manages the person directory.
type PersonService struct {
	repo      personRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonService creates an instance of PersonService.
func NewPersonService(repo personRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PersonService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated people and pagination metadata.
func (s *PersonService) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	persons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list persons")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return persons, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a person by id.
func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	return s.find(ctx, s.repo.FindByID, id)
}

// GetByUsername returns a person by username.
func (s *PersonService) GetByUsername(ctx context.Context, username string) (*models.Person, error) {
	return s.find(ctx, s.repo.FindByUsername, username)
}

func (s *PersonService) find(ctx context.Context, lookup func(context.Context, string) (*models.Person, error), key string) (*models.Person, error) {
	person, err := lookup(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return person, nil
}

// Create adds a person to the directory. New people start active.
func (s *PersonService) Create(ctx context.Context, req dto.CreatePersonRequest, actorID string, meta models.RequestMeta) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create person payload")
	}

	username := strings.TrimSpace(req.Username)
	if err := s.ensureUsernameFree(ctx, username, ""); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	person := &models.Person{
		Username:     username,
		Firstname:    strings.TrimSpace(req.Firstname),
		Lastname:     strings.TrimSpace(req.Lastname),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		IsMember:     req.IsMember,
		Active:       true,
		Admin:        req.Admin,
		Starving:     req.Starving,
		RFID:         req.RFID,
		Joined:       req.Joined,
	}

	if err := s.repo.Create(ctx, person); err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create person")
	}

	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionPersonCreate, "persons", person.ID, nil,
		map[string]interface{}{"username": person.Username, "is_member": person.IsMember, "admin": person.Admin}, meta)

	return person, nil
}

// Update applies profile changes. People may edit their own names, email and
// username; everything else, and editing others, requires an admin.
func (s *PersonService) Update(ctx context.Context, id string, req dto.UpdatePersonRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.Person, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Admin && (actor.UserID != id || req.AdminOnly()) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	person, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *person

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !strings.EqualFold(username, person.Username) {
			if err := s.ensureUsernameFree(ctx, username, person.ID); err != nil {
				return nil, err
			}
		}
		person.Username = username
	}
	if req.Firstname != nil {
		person.Firstname = strings.TrimSpace(*req.Firstname)
	}
	if req.Lastname != nil {
		person.Lastname = strings.TrimSpace(*req.Lastname)
	}
	if req.Email != nil {
		person.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.IsMember != nil {
		person.IsMember = *req.IsMember
	}
	if req.Active != nil && *req.Active != person.Active {
		if !*req.Active && person.ID == actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you can't deactivate yourself")
		}
		person.Active = *req.Active
		switch {
		case person.Active:
			person.Left = nil
		case person.Left == nil:
			leftOn := time.Now().UTC()
			person.Left = &leftOn
		}
	}
	if req.Admin != nil {
		person.Admin = *req.Admin
	}
	if req.Starving != nil {
		person.Starving = *req.Starving
	}
	if req.RFID != nil {
		person.RFID = req.RFID
	}

	if err := s.repo.Update(ctx, person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update person")
	}

	recordAudit(ctx, s.audit, s.logger, actor.UserID, models.AuditActionPersonUpdate, "persons", person.ID,
		auditProfile(&before), auditProfile(person), meta)

	return person, nil
}

// Deactivate marks a person inactive. People are never deleted.
func (s *PersonService) Deactivate(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "you can't deactivate yourself")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate person")
	}

	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionPersonDelete, "persons", id, nil, map[string]bool{"active": false}, meta)
	return nil
}

func (s *PersonService) ensureUsernameFree(ctx context.Context, username, ownID string) error {
	existing, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != ownID:
		return appErrors.Clone(appErrors.ErrConflict, "username already taken")
	case err == nil, errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
}

func auditProfile(p *models.Person) map[string]interface{} {
	return map[string]interface{}{
		"username":  p.Username,
		"email":     p.Email,
		"is_member": p.IsMember,
		"active":    p.Active,
		"admin":     p.Admin,
		"starving":  p.Starving,
	}
}

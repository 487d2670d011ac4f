package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/election"
	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
	"github.com/freesideatlanta/member-portal/pkg/notify"
)

type authPersonRepository interface {
	FindByLogin(ctx context.Context, login string) (*models.Person, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type messageNotifier interface {
	Notify(ctx context.Context, msg notify.Message) (string, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService issues and validates access tokens and manages passwords.
type AuthService struct {
	repo      authPersonRepository
	audit     auditWriter
	notifier  messageNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authPersonRepository, audit auditWriter, notifier messageNotifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{repo: repo, audit: audit, notifier: notifier, validator: validate, logger: logger, config: config}
}

// Login authenticates a person by username or email and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	person, err := s.repo.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch person")
	}

	if !person.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(person.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	accessToken, issuedAt, err := s.generateAccessToken(person)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	recordAudit(ctx, s.audit, s.logger, person.ID, models.AuditActionLogin, "auth", person.ID, nil, map[string]string{"status": "success"}, meta)

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(person),
	}, nil
}

// Me returns the profile of the authenticated person.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	person, err := s.loadPerson(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := userInfo(person)
	return &info, nil
}

// ChangePassword changes the password for the given person.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	person, err := s.loadPerson(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(person.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	if err := s.storePassword(ctx, userID, req.NewPassword); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, s.logger, userID, models.AuditActionPasswordChange, "auth", userID, nil, map[string]string{"status": "changed"}, meta)
	return nil
}

// ResetPassword replaces a member's password with a random one and mails it
// to them. Only active members with a deliverable address can be reset.
func (s *AuthService) ResetPassword(ctx context.Context, targetID, actorID string, meta models.RequestMeta) (*dto.PasswordResetResponse, error) {
	person, err := s.loadPerson(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !election.IsActiveMember(person) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "passwords can only be reset for active members")
	}
	if err := s.validator.Var(person.Email, "required,email"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "member has no valid email address")
	}
	if s.notifier == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "notifications are not configured")
	}

	password, err := randomToken(12)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	if err := s.storePassword(ctx, person.ID, password); err != nil {
		return nil, err
	}

	jobID, err := s.notifier.Notify(ctx, notify.Message{
		To:      person.Email,
		Subject: "Your member portal password was reset",
		Body:    fmt.Sprintf("Hi %s,\n\nAn administrator reset your password.\n\nUsername: %s\nNew password: %s\n\nPlease sign in and change it.\n", person.FullName(), person.Username, password),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue password notification")
	}

	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionPasswordReset, "persons", person.ID, nil, map[string]string{"job_id": jobID}, meta)

	return &dto.PasswordResetResponse{PersonID: person.ID, JobID: jobID, SentTo: person.Email}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) storePassword(ctx context.Context, id, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

func (s *AuthService) loadPerson(ctx context.Context, id string) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return person, nil
}

func (s *AuthService) generateAccessToken(person *models.Person) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   person.ID,
		Username: person.Username,
		Admin:    person.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   person.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func userInfo(p *models.Person) models.UserInfo {
	return models.UserInfo{
		ID:       p.ID,
		Username: p.Username,
		FullName: p.FullName(),
		Admin:    p.Admin,
		IsMember: p.IsMember,
		Active:   p.Active,
	}
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

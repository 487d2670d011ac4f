package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/repository"
	"github.com/freesideatlanta/member-portal/pkg/database"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

func newPersonFixture(t *testing.T) (*PersonService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore(database.RetryPolicy{})
	return NewPersonService(store, store, validator.New(), zap.NewNop()), store
}

func createPerson(t *testing.T, svc *PersonService, username string) *models.Person {
	t.Helper()
	p, err := svc.Create(context.Background(), dto.CreatePersonRequest{
		Username:  username,
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     " " + username + "@Example.com ",
		Password:  "password1",
		IsMember:  true,
	}, "admin-1", models.RequestMeta{})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestPersonServiceCreate(t *testing.T) {
	svc, store := newPersonFixture(t)
	p := createPerson(t, svc, "ada")

	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Active)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.NotEqual(t, "password1", p.PasswordHash)

	_, err := svc.Create(context.Background(), dto.CreatePersonRequest{
		Username: "ADA", Firstname: "A", Lastname: "L", Email: "other@example.com", Password: "password1",
	}, "admin-1", models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), dto.CreatePersonRequest{
		Username: "a@b", Firstname: "A", Lastname: "L", Email: "ab@example.com", Password: "password1",
	}, "admin-1", models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	logs, err := store.ListAuditLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionPersonCreate, logs[0].Action)
	assert.NotContains(t, string(logs[0].NewValues), "password")
}

func TestPersonServiceUpdatePermissions(t *testing.T) {
	svc, _ := newPersonFixture(t)
	ctx := context.Background()
	ada := createPerson(t, svc, "ada")
	bob := createPerson(t, svc, "bob")

	self := &models.JWTClaims{UserID: ada.ID}
	admin := &models.JWTClaims{UserID: "admin-1", Admin: true}

	updated, err := svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Firstname: strPtr("Augusta")}, self, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.Firstname)

	_, err = svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Admin: boolPtr(true)}, self, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, bob.ID, dto.UpdatePersonRequest{Firstname: strPtr("Robert")}, self, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Username: strPtr("Bob")}, self, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{}, nil, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	updated, err = svc.Update(ctx, bob.ID, dto.UpdatePersonRequest{Admin: boolPtr(true), Starving: boolPtr(true)}, admin, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, updated.Admin)
	assert.True(t, updated.Starving)

	stored, err := svc.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestPersonServiceDeactivate(t *testing.T) {
	svc, _ := newPersonFixture(t)
	ctx := context.Background()
	ada := createPerson(t, svc, "ada")

	assert.ErrorIs(t, svc.Deactivate(ctx, ada.ID, ada.ID, models.RequestMeta{}), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Deactivate(ctx, "missing", "admin-1", models.RequestMeta{}), appErrors.ErrNotFound)

	require.NoError(t, svc.Deactivate(ctx, ada.ID, "admin-1", models.RequestMeta{}))
	stored, err := svc.GetByUsername(ctx, "ADA")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.NotNil(t, stored.Left)
}

func TestPersonServiceUpdateActiveStampsLeaveDate(t *testing.T) {
	svc, _ := newPersonFixture(t)
	ctx := context.Background()
	ada := createPerson(t, svc, "ada")
	admin := &models.JWTClaims{UserID: "admin-1", Admin: true}

	updated, err := svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Active: boolPtr(false)}, admin, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	require.NotNil(t, updated.Left)

	stored, err := svc.Get(ctx, ada.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Left)
	assert.Equal(t, *updated.Left, *stored.Left)

	updated, err = svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Active: boolPtr(true)}, admin, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Nil(t, updated.Left)

	self := &models.JWTClaims{UserID: ada.ID, Admin: true}
	_, err = svc.Update(ctx, ada.ID, dto.UpdatePersonRequest{Active: boolPtr(false)}, self, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestPersonServiceList(t *testing.T) {
	svc, _ := newPersonFixture(t)
	ctx := context.Background()
	createPerson(t, svc, "ada")
	bob := createPerson(t, svc, "bob")
	require.NoError(t, svc.Deactivate(ctx, bob.ID, "admin-1", models.RequestMeta{}))

	people, page, err := svc.List(ctx, models.PersonFilter{Active: boolPtr(true), PageSize: 500})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "ada", people[0].Username)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

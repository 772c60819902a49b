package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/repository"
	"github.com/spec-kit/tour-service/internal/service"
)

func newTestUserService(t *testing.T) (*service.UserService, *repository.MemoryStore, *domain.User) {
	t.Helper()
	store := repository.NewMemoryStore(testHasher())
	svc := service.NewUserService(store)

	user, err := store.Create(context.Background(), repository.NewUser{
		Name:     "Ada",
		Email:    "a@x.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	return svc, store, user
}

func TestUpdateMe(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newTestUserService(t)

	name := "Ada Lovelace"
	email := "Ada@New.com"
	updated, err := svc.UpdateMe(ctx, user.ID, &name, &email)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "ada@new.com", updated.Email)
}

func TestUpdateMeDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, store, user := newTestUserService(t)

	_, err := store.Create(ctx, repository.NewUser{Name: "Eve", Email: "e@x.com", Password: "Secret123"})
	require.NoError(t, err)

	email := "e@x.com"
	_, err = svc.UpdateMe(ctx, user.ID, nil, &email)
	assert.Equal(t, "DUPLICATE_EMAIL", errCode(t, err))
}

func TestUpdateMeNothingToUpdate(t *testing.T) {
	svc, _, user := newTestUserService(t)
	_, err := svc.UpdateMe(context.Background(), user.ID, nil, nil)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestDeleteMeSoftDeletes(t *testing.T) {
	ctx := context.Background()
	svc, store, user := newTestUserService(t)

	require.NoError(t, svc.DeleteMe(ctx, user.ID))

	// Gone from every lookup, not hard-deleted.
	_, err := store.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListUsersPaging(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestUserService(t)

	for _, email := range []string{"b@x.com", "c@x.com", "d@x.com"} {
		_, err := store.Create(ctx, repository.NewUser{Name: "N", Email: email, Password: "Secret123"})
		require.NoError(t, err)
	}

	all, err := svc.ListUsers(ctx, 1, 50)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	page, err := svc.ListUsers(ctx, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestAdminUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newTestUserService(t)

	role := domain.RoleGuide
	updated, err := svc.UpdateUser(ctx, user.ID, repository.AdminUserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuide, updated.Role)

	bogus := domain.Role("superuser")
	_, err = svc.UpdateUser(ctx, user.ID, repository.AdminUserUpdate{Role: &bogus})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestAdminDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newTestUserService(t)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	assert.Equal(t, "NOT_FOUND", errCode(t, svc.DeleteUser(ctx, user.ID)))

	_, err := svc.GetUser(ctx, user.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"agora/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedCode  string
		expectedError bool
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).AddRow(1, "testuser", "test@example.com"))
			},
		},
		{
			name:   "Not Found",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(2, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: true,
			expectedCode:  models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)
			if tt.expectedError {
				assert.Error(t, err)
				assert.True(t, models.HasCode(err, tt.expectedCode))
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.userID, user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "kim", Email: "kim@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "kim", Email: "other@example.com", Password: "x"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Equal(t, "username", appErr.Field)

	err = repo.Create(ctx, &models.User{Username: "lee", Email: "kim@example.com", Password: "x"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Field)
}

func TestUserRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	gid := "g-123"
	u := &models.User{Username: "max", Email: "max@example.com", Password: "x", GoogleID: &gid}
	require.NoError(t, repo.Create(ctx, u))
	other := createUser(t, db, "ned")

	byEmail, err := repo.GetByEmail(ctx, "max@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := repo.GetByUsername(ctx, "ned")
	require.NoError(t, err)
	assert.Equal(t, other.ID, byName.ID)

	byProvider, err := repo.GetByProviderID(ctx, ProviderGoogle, gid)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byProvider.ID)

	_, err = repo.GetByProviderID(ctx, "twitter", gid)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = repo.GetByProviderID(ctx, ProviderFacebook, gid)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	users, err := repo.GetByIDs(ctx, []uint{u.ID, other.ID, 99})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash"))
	reloaded, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.Password)

	assert.True(t, models.HasCode(repo.UpdatePassword(ctx, 999, "h"), models.CodeNotFound))

	listed, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, other.ID, listed[0].ID)
}

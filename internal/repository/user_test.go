package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantName     string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email"}).
					AddRow(1, "Asha", "asha@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantName: "Asha",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(2, 1).
					WillReturnError(errors.New("connection timeout"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, user)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantName, user.Name)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x"})
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	t.Parallel()
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueConstraintError(errors.New("connection refused")))
}

func TestUserRepository_Graph(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	social := NewSocialRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "asha")
	b := seedUser(t, db, "bilal")
	c := seedUser(t, db, "chen")

	_, err := social.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = social.ToggleFollow(ctx, c.ID, a.ID)
	require.NoError(t, err)
	_, err = social.ToggleFollow(ctx, a.ID, c.ID)
	require.NoError(t, err)

	got, err := users.GetWithGraph(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, got.Followers)
	assert.Equal(t, []uint{c.ID}, got.Following)
	assert.Empty(t, got.Bookmarks)

	all, err := users.ListWithGraph(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, u := range all {
		for _, f := range u.Following {
			var followee models.User
			for _, v := range all {
				if v.ID == f {
					followee = v
				}
			}
			assert.Contains(t, followee.Followers, u.ID, "follow edge %d->%d must appear on both sides", u.ID, f)
		}
	}

	byIDs, err := users.ListByIDs(ctx, []uint{c.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	empty, err := users.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserRepository_CreateAndUpdate(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	err := repo.Create(ctx, &models.User{Name: "Other", Email: "asha@example.com", PasswordHash: "hash"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	found, err := repo.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, "Asha R", "/media/profile_images/1"))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha R", got.Name)
	assert.Equal(t, "/media/profile_images/1", got.ImageURL)

	err = repo.UpdateProfile(ctx, 999, "x", "")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

var userColumns = []string{"id", "name", "email", "phone", "password_hash", "status", "created_at", "updated_at"}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "Awa Diop", "awa@example.sn", nil, "hash", "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		user, err := repo.CreateUser(ctx, " Awa Diop ", " AWA@example.sn", nil, "hash")
		require.NoError(t, err)
		assert.Equal(t, "awa@example.sn", user.Email)
		assert.Equal(t, "Awa Diop", user.Name)
		assert.NotEqual(t, uuid.Nil, user.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		user, err := repo.CreateUser(ctx, "Awa", "awa@example.sn", nil, "hash")
		assert.ErrorIs(t, err, models.ErrEmailTaken)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(fmt.Errorf("database error"))

		user, err := repo.CreateUser(ctx, "Awa", "awa@example.sn", nil, "hash")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to create user")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("moussa@example.sn").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(userID.String(), "Moussa Fall", "moussa@example.sn", nil, "hash", "active", now, now))

		user, err := repo.GetUserByEmail(ctx, "Moussa@Example.sn")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "hash", user.PasswordHash)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("nobody@example.sn").
			WillReturnRows(sqlmock.NewRows(userColumns))

		user, err := repo.GetUserByEmail(ctx, "nobody@example.sn")
		assert.NoError(t, err)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(userID).
		WillReturnError(fmt.Errorf("connection reset"))

	user, err := repo.GetUserByID(context.Background(), userID)
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "failed to get user by id")

	assert.NoError(t, mock.ExpectationsWereMet())
}

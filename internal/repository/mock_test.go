package repository

import (
	"context"
	"regexp"
	"testing"

	"appx/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_FindByHandle_QueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usuario" WHERE LOWER(email) LIKE $1 ESCAPE '\' ORDER BY id_usuario ASC LIMIT $2`)).
		WithArgs(`ana\_b@%`, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id_usuario", "nome", "email"}).AddRow(4, "Ana", "ana_b@example.com"))

	user, err := repo.FindByHandle(context.Background(), "Ana_B")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, uint(4), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_PgErrors(t *testing.T) {
	tests := []struct {
		name     string
		pgCode   string
		wantCode string
	}{
		{"Duplicate email", "23505", models.CodeConflict},
		{"Other failure", "40001", models.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "usuario"`)).
				WillReturnError(&pgconn.PgError{Code: tt.pgCode, Message: "boom"})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{Name: "A", Email: "a@example.com", PasswordHash: "x"})
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReactionRepository_Like_QueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reacao"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("usuario_id","alvo_id","alvo_tipo") DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"criado_em", "id_reacao"}))
	mock.ExpectCommit()

	created, err := repo.Like(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, created, "a conflicting insert returns no rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/quickai/internal/models"
)

var creationCols = []string{"id", "user_id", "prompt", "content", "type", "publish", "likes", "created_at"}

func setupStore(t *testing.T) (*CreationStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewCreationStore(sqlx.NewDb(sqlDB, "sqlmock")), mock
}

func TestAppend(t *testing.T) {
	store, mock := setupStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO creations (user_id, prompt, content, type, publish) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at")).
		WithArgs("user-1", "ocean sunset", "https://cdn.example.com/x.png", "image", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))

	created, err := store.Append(context.Background(), models.Creation{
		UserID:  "user-1",
		Prompt:  "ocean sunset",
		Content: "https://cdn.example.com/x.png",
		Type:    models.CreationImage,
		Publish: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, created.ID)
	assert.Equal(t, now, created.CreatedAt)
	assert.NotNil(t, created.Likes)
	assert.Empty(t, created.Likes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsEmptyContent(t *testing.T) {
	store, mock := setupStore(t)

	_, err := store.Append(context.Background(), models.Creation{UserID: "user-1", Prompt: "p", Type: models.CreationArticle})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendDatabaseError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("INSERT INTO creations").WillReturnError(assert.AnError)

	_, err := store.Append(context.Background(), models.Creation{UserID: "u", Prompt: "p", Content: "c", Type: models.CreationArticle})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestListByUser(t *testing.T) {
	store, mock := setupStore(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, prompt, content, type, publish, likes, created_at FROM creations WHERE user_id = $1 ORDER BY created_at ASC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(creationCols).
			AddRow(1, "user-1", "go tips", "1. Go Tips", "blog-title", false, "{}", first).
			AddRow(2, "user-1", "cat", "https://cdn.example.com/cat.png", "image", true, "{user-2,user-3}", second))

	creations, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, creations, 2)

	assert.Equal(t, models.CreationBlogTitle, creations[0].Type)
	assert.Equal(t, models.CreationImage, creations[1].Type)
	assert.True(t, creations[1].Publish)
	assert.Equal(t, []string{"user-2", "user-3"}, []string(creations[1].Likes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserEmpty(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT .* FROM creations WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(creationCols))

	creations, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, creations)
	assert.Empty(t, creations)
}

func TestListPublished(t *testing.T) {
	store, mock := setupStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, prompt, content, type, publish, likes, created_at FROM creations WHERE publish = true ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(creationCols).
			AddRow(9, "user-2", "dog", "https://cdn.example.com/dog.png", "image", true, "{}", now))

	creations, err := store.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, creations, 1)
	assert.Equal(t, 9, creations[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleLike(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		wantLiked bool
		wantLikes []string
	}{
		{"like", "{user-2}", true, []string{"user-2", "user-1"}},
		{"unlike", "{user-1,user-2}", false, []string{"user-2"}},
		{"first like", "{}", true, []string{"user-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := setupStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("SELECT likes FROM creations WHERE id = $1 FOR UPDATE")).
				WithArgs(7).
				WillReturnRows(sqlmock.NewRows([]string{"likes"}).AddRow(tt.current))
			mock.ExpectExec(regexp.QuoteMeta("UPDATE creations SET likes = $1 WHERE id = $2")).
				WithArgs(sqlmock.AnyArg(), 7).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			liked, likes, err := store.ToggleLike(context.Background(), 7, "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLiked, liked)
			assert.Equal(t, tt.wantLikes, likes)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestToggleLikeNotFound(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT likes FROM creations WHERE id = $1 FOR UPDATE")).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"likes"}))
	mock.ExpectRollback()

	_, _, err := store.ToggleLike(context.Background(), 404, "user-1")
	assert.ErrorIs(t, err, ErrCreationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleLikeUpdateFails(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT likes FROM creations").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"likes"}).AddRow("{}"))
	mock.ExpectExec("UPDATE creations SET likes").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := store.ToggleLike(context.Background(), 7, "user-1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

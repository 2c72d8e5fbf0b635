package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCreationsTable(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	clients := &Clients{
		DB:    sqlx.NewDb(sqlDB, "sqlmock"),
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}
	defer clients.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS creations").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, clients.CreateCreationsTable(context.Background()))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS creations").WillReturnError(assert.AnError)
	assert.ErrorIs(t, clients.CreateCreationsTable(context.Background()), assert.AnError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

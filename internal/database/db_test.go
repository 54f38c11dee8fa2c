package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureAppliesLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configure(db, Pool{MaxOpen: 7, MaxIdle: 3, MaxLifetime: time.Minute})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping mysql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

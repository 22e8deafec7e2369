package database

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLPings(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("connect-sql-ok", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	db, err := ConnectSQL(context.Background(), "sqlmock", "connect-sql-ok", SQLOptions{MaxOpenConns: 2})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 2, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectSQLPingFailure(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("connect-sql-fail", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(assert.AnError)

	_, err = ConnectSQL(context.Background(), "sqlmock", "connect-sql-fail", SQLOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "ping failed")
}

func TestConnectSQLWithQueryLogReleasesPlainPool(t *testing.T) {
	_, _, err := sqlmock.NewWithDSN("connect-sql-logged")
	require.NoError(t, err)
	nop := zerolog.Nop()
	opts := SQLOptions{QueryLog: true, Logger: &nop}

	db, err := ConnectSQL(context.Background(), "sqlmock", "connect-sql-logged", opts)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(context.Background()))
	db.Close()

	baseline := runtime.NumGoroutine()
	for range 20 {
		db, err := ConnectSQL(context.Background(), "sqlmock", "connect-sql-logged", opts)
		require.NoError(t, err)
		db.Close()
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline+2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConnectSQLUnknownDriver(t *testing.T) {
	_, err := ConnectSQL(context.Background(), "nosuchdriver", "dsn", SQLOptions{})
	assert.ErrorContains(t, err, "error opening nosuchdriver database")
}

func TestConnectPostgresRejectsBadDSN(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "postgres://%zz", 4)
	assert.ErrorContains(t, err, "failed to parse postgres config")
}

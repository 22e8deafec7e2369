package etl

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/BartekS5/astramigrate/pkg/database"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialed struct {
	driver string
	dsn    string
	opts   database.SQLOptions
}

func connectMock(t *testing.T, dest *SQLDestination) (sqlmock.Sqlmock, *dialed) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	got := &dialed{}
	dest.dial = func(_ context.Context, driver, dsn string, opts database.SQLOptions) (*sql.DB, error) {
		got.driver, got.dsn, got.opts = driver, dsn, opts
		return db, nil
	}
	require.NoError(t, dest.Connect(context.Background()))
	return mock, got
}

func TestMySQLInsert(t *testing.T) {
	dest := NewMySQLDestination(models.ConnectionConfig{Host: "db", Username: "u", Password: "p", Database: "app"}, Options{QueryLog: true, MaxConns: 3})
	mock, got := connectMock(t, dest)

	assert.Equal(t, "mysql", got.driver)
	assert.Contains(t, got.dsn, "u:p@tcp(db:3306)/app")
	assert.Contains(t, got.dsn, "parseTime=true")
	assert.True(t, got.opts.QueryLog)
	assert.Equal(t, 3, got.opts.MaxOpenConns)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people` (`id`, `name`) VALUES (?, ?), (?, ?), (?, ?)").
		WithArgs(1, "a", 2, "b", 3, "c").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	res := dest.Insert(context.Background(), usersBatch(), "people")
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, 3, res.Rows)

	mock.ExpectClose()
	require.NoError(t, dest.Disconnect(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLInsertChunksByParameterLimit(t *testing.T) {
	d := mysqlDialect
	d.maxParams = 4
	dest := newSQLDestination(d, models.ConnectionConfig{Host: "db", Database: "app"}, Options{})
	mock, _ := connectMock(t, dest)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people` (`id`, `name`) VALUES (?, ?), (?, ?)").
		WithArgs(1, "a", 2, "b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO `people` (`id`, `name`) VALUES (?, ?)").
		WithArgs(3, "c").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := dest.Insert(context.Background(), usersBatch(), "people")
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, 3, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLInsertRollsBackOnError(t *testing.T) {
	dest := NewMySQLDestination(models.ConnectionConfig{Host: "db", Database: "app"}, Options{})
	mock, _ := connectMock(t, dest)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people` (`id`, `name`) VALUES (?, ?), (?, ?), (?, ?)").
		WillReturnError(errors.New("Table 'app.people' doesn't exist"))
	mock.ExpectRollback()

	res := dest.Insert(context.Background(), usersBatch(), "people")
	assert.Equal(t, KindInsert, res.Kind)
	assert.ErrorContains(t, res.Err, "doesn't exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMSSQLInsertWithSchemaAndAutoCreate(t *testing.T) {
	dest := NewMSSQLDestination(models.ConnectionConfig{Host: "db", Username: "sa", Password: "p@ss", Database: "app", Schema: "dbo"}, Options{AutoCreate: true})
	mock, got := connectMock(t, dest)

	assert.Equal(t, "sqlserver", got.driver)
	assert.Equal(t, "sqlserver://sa:p%40ss@db:1433?database=app", got.dsn)

	mock.ExpectExec("IF OBJECT_ID(N'dbo.people', N'U') IS NULL CREATE TABLE [dbo].[people] ([id] BIGINT, [name] NVARCHAR(MAX))").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO [dbo].[people] ([id], [name]) VALUES (@p1, @p2), (@p3, @p4), (@p5, @p6)").
		WithArgs(1, "a", 2, "b", 3, "c").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	res := dest.Insert(context.Background(), usersBatch(), "people")
	require.True(t, res.OK(), res.Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOracleInsertsOneRowPerStatement(t *testing.T) {
	dest := NewOracleDestination(models.ConnectionConfig{Host: "db", Username: "scott", Password: "tiger", Database: "XEPDB1"}, Options{})
	mock, got := connectMock(t, dest)

	assert.Equal(t, "oracle", got.driver)
	assert.Contains(t, got.dsn, "oracle://scott:tiger@db:1521/XEPDB1")

	mock.ExpectBegin()
	for _, args := range [][]interface{}{{1, "a"}, {2, "b"}, {3, "c"}} {
		mock.ExpectExec(`INSERT INTO "people" ("id", "name") VALUES (:1, :2)`).
			WithArgs(args[0], args[1]).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	res := dest.Insert(context.Background(), usersBatch(), "people")
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, 3, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLInsertGuards(t *testing.T) {
	dest := NewMySQLDestination(models.ConnectionConfig{Host: "db", Database: "app"}, Options{})

	res := dest.Insert(context.Background(), usersBatch(), "people")
	assert.Equal(t, KindNotConnected, res.Kind)
	assert.NoError(t, dest.Disconnect(context.Background()))

	mock, _ := connectMock(t, dest)

	res = dest.Insert(context.Background(), usersBatch(), "")
	assert.Equal(t, KindInvalid, res.Kind)

	ragged := models.Batch{Columns: []string{"id"}, Records: []models.Record{{"id": 1}, {"other": 2}}}
	res = dest.Insert(context.Background(), ragged, "people")
	assert.Equal(t, KindInvalid, res.Kind)

	res = dest.Insert(context.Background(), models.Batch{}, "people")
	assert.True(t, res.OK())
	assert.Zero(t, res.Rows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnectFailure(t *testing.T) {
	dest := NewOracleDestination(models.ConnectionConfig{Host: "db", Database: "XEPDB1"}, Options{})
	dest.dial = func(context.Context, string, string, database.SQLOptions) (*sql.DB, error) {
		return nil, errors.New("ORA-12541: TNS:no listener")
	}

	err := dest.Connect(context.Background())
	assert.True(t, IsConnectError(err))
	assert.NoError(t, dest.Disconnect(context.Background()))
	assert.Equal(t, KindNotConnected, dest.Insert(context.Background(), usersBatch(), "people").Kind)
}

func TestDialectInsertStatement(t *testing.T) {
	assert.Equal(t, `INSERT INTO t ("a") VALUES (:1), (:2)`, oracleDialect.insertStatement("t", []string{"a"}, 2))
	assert.Equal(t, "`we``ird`", mysqlDialect.quote("we`ird"))
	assert.Equal(t, "[a]]b]", mssqlDialect.quote("a]b"))
	assert.Equal(t, `"s"."t"`, oracleDialect.qualify("s.t", "other"))
	assert.Equal(t, `"other"."t"`, oracleDialect.qualify("t", "other"))
	assert.Equal(t, 1000, mssqlDialect.rowsPerStatement(2))
	assert.Equal(t, 1000, mssqlDialect.rowsPerStatement(1))
	assert.Equal(t, 200, mssqlDialect.rowsPerStatement(10))
	assert.Equal(t, 1, mssqlDialect.rowsPerStatement(5000))
	assert.Equal(t, 65535, mysqlDialect.rowsPerStatement(1))
	assert.Equal(t, 1, oracleDialect.rowsPerStatement(2))
}

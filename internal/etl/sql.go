package etl

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/BartekS5/astramigrate/pkg/database"
	"github.com/BartekS5/astramigrate/pkg/logger"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/go-sql-driver/mysql"
	go_ora "github.com/sijms/go-ora/v2"
)

// dialect holds everything that differs between database/sql families.
type dialect struct {
	family models.Family
	driver string
	dsn    func(models.ConnectionConfig) string
	quote  func(string) string
	// placeholder returns the n-th (1 based) bind parameter.
	placeholder func(n int) string
	// maxParams caps bind parameters per statement; 0 means one row per statement.
	maxParams int
	// maxRows caps row value expressions per statement; 0 means no cap.
	maxRows     int
	createTable func(qualified, bare string, defs []string) string
}

var mysqlDialect = dialect{
	family: models.FamilyMySQL,
	driver: "mysql",
	dsn: func(c models.ConnectionConfig) string {
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = c.Address()
		mc.DBName = c.Database
		mc.ParseTime = true
		if len(c.Options) > 0 {
			mc.Params = make(map[string]string, len(c.Options))
			for k, v := range c.Options {
				mc.Params[k] = v
			}
		}
		return mc.FormatDSN()
	},
	quote: func(s string) string {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	},
	placeholder: func(int) string { return "?" },
	maxParams:   65535,
	createTable: func(qualified, _ string, defs []string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, strings.Join(defs, ", "))
	},
}

var mssqlDialect = dialect{
	family: models.FamilyMSSQL,
	driver: "sqlserver",
	dsn: func(c models.ConnectionConfig) string {
		q := url.Values{}
		for k, v := range c.Options {
			q.Set(k, v)
		}
		q.Set("database", c.Database)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     c.Address(),
			RawQuery: q.Encode(),
		}
		return u.String()
	},
	quote: func(s string) string {
		return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
	},
	placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	maxParams:   2000,
	maxRows:     1000,
	createTable: func(qualified, bare string, defs []string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
			strings.ReplaceAll(bare, "'", "''"), qualified, strings.Join(defs, ", "))
	},
}

var oracleDialect = dialect{
	family: models.FamilyOracle,
	driver: "oracle",
	dsn: func(c models.ConnectionConfig) string {
		return go_ora.BuildUrl(c.Host, c.Port, c.Database, c.Username, c.Password, c.Options)
	},
	quote: func(s string) string {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	},
	placeholder: func(n int) string { return fmt.Sprintf(":%d", n) },
	createTable: func(qualified, _ string, defs []string) string {
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(defs, ", "))
		// ORA-00955: name is already used by an existing object.
		return fmt.Sprintf("BEGIN EXECUTE IMMEDIATE '%s'; EXCEPTION WHEN OTHERS THEN IF SQLCODE != -955 THEN RAISE; END IF; END;",
			strings.ReplaceAll(ddl, "'", "''"))
	},
}

func (d dialect) qualify(name, schema string) string {
	parts := splitQualified(name, schema)
	for i, p := range parts {
		parts[i] = d.quote(p)
	}
	return strings.Join(parts, ".")
}

// rowsPerStatement is how many records fit one INSERT for n columns.
func (d dialect) rowsPerStatement(n int) int {
	if d.maxParams == 0 || n == 0 {
		return 1
	}
	r := max(d.maxParams/n, 1)
	if d.maxRows > 0 {
		r = min(r, d.maxRows)
	}
	return r
}

// insertStatement builds a multi-row INSERT for rows records of n columns.
func (d dialect) insertStatement(table string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(quoted, ", "))
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.placeholder(arg))
			arg++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// SQLDestination appends batches to a relational store through database/sql.
type SQLDestination struct {
	base
	cfg         models.ConnectionConfig
	dialect     dialect
	db          *sql.DB
	transformer *Transformer
	dial        func(ctx context.Context, driver, dsn string, opts database.SQLOptions) (*sql.DB, error)
}

func newSQLDestination(d dialect, cfg models.ConnectionConfig, opts Options) *SQLDestination {
	return &SQLDestination{
		base:        newBase(d.family, opts),
		cfg:         cfg.WithDefaults(d.family),
		dialect:     d,
		transformer: NewTransformer(),
		dial:        database.ConnectSQL,
	}
}

func NewMySQLDestination(cfg models.ConnectionConfig, opts Options) *SQLDestination {
	return newSQLDestination(mysqlDialect, cfg, opts)
}

func NewMSSQLDestination(cfg models.ConnectionConfig, opts Options) *SQLDestination {
	return newSQLDestination(mssqlDialect, cfg, opts)
}

func NewOracleDestination(cfg models.ConnectionConfig, opts Options) *SQLDestination {
	return newSQLDestination(oracleDialect, cfg, opts)
}

func (s *SQLDestination) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	ctx, cancel := s.connectContext(ctx)
	defer cancel()

	db, err := s.dial(ctx, s.dialect.driver, s.dialect.dsn(s.cfg), database.SQLOptions{
		MaxOpenConns: s.opts.MaxConns,
		QueryLog:     s.opts.QueryLog,
		Logger:       logger.Logger(),
	})
	if err != nil {
		return s.connected(err)
	}
	s.db = db
	return s.connected(nil)
}

func (s *SQLDestination) Disconnect(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return s.disconnected(err)
}

// Insert appends every record of batch to target inside one transaction.
func (s *SQLDestination) Insert(ctx context.Context, batch models.Batch, target string) Result {
	if s.db == nil {
		return s.report("insert", target, failure(KindNotConnected, ErrNotConnected))
	}
	if r := validateInsert(batch, target); !r.OK() {
		return s.report("insert", target, r)
	}
	if batch.Empty() {
		return s.report("insert", target, ok(0))
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.transformer.ToSQLRows(batch)
	if err != nil {
		return s.report("insert", target, failure(KindInvalid, err))
	}
	table := s.dialect.qualify(target, s.cfg.Schema)

	if s.opts.AutoCreate {
		if err := s.ensureTable(ctx, table, strings.Join(splitQualified(target, s.cfg.Schema), "."), batch); err != nil {
			return s.report("insert", target, failure(KindInsert, err))
		}
	}

	n, err := s.insertRows(ctx, table, batch.Columns, rows)
	if err != nil {
		return s.report("insert", target, failure(KindInsert, fmt.Errorf("insert into %s: %w", target, err)))
	}
	return s.report("insert", target, ok(n))
}

func (s *SQLDestination) insertRows(ctx context.Context, table string, cols []string, rows [][]interface{}) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	per := s.dialect.rowsPerStatement(len(cols))
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]
		args := make([]interface{}, 0, len(chunk)*len(cols))
		for _, r := range chunk {
			args = append(args, r...)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.insertStatement(table, cols, len(chunk)), args...); err != nil {
			return 0, fmt.Errorf("error executing batch insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	return len(rows), nil
}

func (s *SQLDestination) ensureTable(ctx context.Context, table, bare string, batch models.Batch) error {
	kinds := s.transformer.ColumnKinds(batch)
	defs := make([]string, len(batch.Columns))
	for i, c := range batch.Columns {
		defs[i] = s.dialect.quote(c) + " " + ColumnType(s.family, kinds[i])
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(table, bare, defs)); err != nil {
		return fmt.Errorf("create table %s: %w", bare, err)
	}
	return nil
}

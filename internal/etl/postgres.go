package etl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/BartekS5/astramigrate/pkg/database"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgCopier is the part of a pgx pool the destination uses.
type pgCopier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

func dialPgx(ctx context.Context, dsn string, maxConns int32) (pgCopier, error) {
	pool, err := database.ConnectPostgres(ctx, dsn, maxConns)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// PostgresDSN builds a postgres:// URL from cfg.
func PostgresDSN(c models.ConnectionConfig) string {
	q := url.Values{}
	for k, v := range c.Options {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Address(),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// PostgresDestination bulk loads batches with COPY FROM.
type PostgresDestination struct {
	base
	cfg         models.ConnectionConfig
	pool        pgCopier
	transformer *Transformer
	dial        func(ctx context.Context, dsn string, maxConns int32) (pgCopier, error)
}

func NewPostgresDestination(cfg models.ConnectionConfig, opts Options) *PostgresDestination {
	return &PostgresDestination{
		base:        newBase(models.FamilyPostgres, opts),
		cfg:         cfg.WithDefaults(models.FamilyPostgres),
		transformer: NewTransformer(),
		dial:        dialPgx,
	}
}

func (p *PostgresDestination) Connect(ctx context.Context) error {
	if p.pool != nil {
		return nil
	}
	ctx, cancel := p.connectContext(ctx)
	defer cancel()

	pool, err := p.dial(ctx, PostgresDSN(p.cfg), int32(p.opts.MaxConns))
	if err != nil {
		return p.connected(err)
	}
	p.pool = pool
	return p.connected(nil)
}

func (p *PostgresDestination) Disconnect(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	return p.disconnected(nil)
}

func (p *PostgresDestination) Insert(ctx context.Context, batch models.Batch, target string) Result {
	if p.pool == nil {
		return p.report("insert", target, failure(KindNotConnected, ErrNotConnected))
	}
	if r := validateInsert(batch, target); !r.OK() {
		return p.report("insert", target, r)
	}
	if batch.Empty() {
		return p.report("insert", target, ok(0))
	}

	ctx, cancel := p.opContext(ctx)
	defer cancel()

	rows, err := p.transformer.ToSQLRows(batch)
	if err != nil {
		return p.report("insert", target, failure(KindInvalid, err))
	}
	ident := pgx.Identifier(splitQualified(target, p.cfg.Schema))

	if p.opts.AutoCreate {
		if err := p.ensureTable(ctx, ident, batch); err != nil {
			return p.report("insert", target, failure(KindInsert, err))
		}
	}

	n, err := p.pool.CopyFrom(ctx, ident, batch.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return p.report("insert", target, failure(KindInsert, fmt.Errorf("copy from error: %w", err)))
	}
	return p.report("insert", target, ok(int(n)))
}

func (p *PostgresDestination) ensureTable(ctx context.Context, ident pgx.Identifier, batch models.Batch) error {
	kinds := p.transformer.ColumnKinds(batch)
	defs := make([]string, len(batch.Columns))
	for i, c := range batch.Columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + ColumnType(models.FamilyPostgres, kinds[i])
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", ident.Sanitize(), err)
	}
	return nil
}

package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/astramigrate/pkg/database"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/BartekS5/astramigrate/pkg/utils"
	"github.com/gocql/gocql"
)

// SourceConfig locates the wide-column source. With a BundlePath the client
// id and secret authenticate against the bundle's cluster; otherwise Hosts
// are contacted directly.
type SourceConfig struct {
	BundlePath   string
	ClientID     string
	ClientSecret string
	Keyspace     string
	Hosts        []string
	Port         int
	LocalDC      string
}

func (c SourceConfig) spec(opts Options) database.CassandraSpec {
	return database.CassandraSpec{
		BundlePath: c.BundlePath,
		Hosts:      append([]string(nil), c.Hosts...),
		Port:       c.Port,
		Username:   c.ClientID,
		Password:   c.ClientSecret,
		Keyspace:   c.Keyspace,
		LocalDC:    c.LocalDC,
		Timeout:    opts.OpTimeout,
	}
}

// cqlSession is the slice of a CQL session the source uses.
type cqlSession interface {
	Select(ctx context.Context, stmt string) ([]string, []map[string]interface{}, error)
	Close()
}

type gocqlSession struct {
	s *gocql.Session
}

func (g gocqlSession) Select(ctx context.Context, stmt string) ([]string, []map[string]interface{}, error) {
	iter := g.s.Query(stmt).WithContext(ctx).Iter()
	cols := iter.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	rows, err := iter.SliceMap()
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, err
	}
	return names, rows, nil
}

func (g gocqlSession) Close() {
	g.s.Close()
}

func dialGocql(ctx context.Context, spec database.CassandraSpec) (cqlSession, error) {
	s, err := database.ConnectCassandra(ctx, spec)
	if err != nil {
		return nil, err
	}
	return gocqlSession{s: s}, nil
}

// CassandraSource fetches bounded batches from a Cassandra or Astra keyspace.
type CassandraSource struct {
	base
	cfg     SourceConfig
	session cqlSession
	dial    func(context.Context, database.CassandraSpec) (cqlSession, error)
}

func NewCassandraSource(cfg SourceConfig, opts Options) *CassandraSource {
	cfg.Hosts = append([]string(nil), cfg.Hosts...)
	return &CassandraSource{
		base: newBase(models.FamilyCassandra, opts),
		cfg:  cfg,
		dial: dialGocql,
	}
}

func (c *CassandraSource) Connect(ctx context.Context) error {
	if c.session != nil {
		return nil
	}
	ctx, cancel := c.connectContext(ctx)
	defer cancel()

	s, err := c.dial(ctx, c.cfg.spec(c.opts))
	if err != nil {
		return c.connected(err)
	}
	c.session = s
	return c.connected(nil)
}

func (c *CassandraSource) Disconnect(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	c.session.Close()
	c.session = nil
	return c.disconnected(nil)
}

// Fetch reads up to limit rows of table. On failure the batch is empty and
// the Result says why, so an empty table and a failed read stay distinct.
func (c *CassandraSource) Fetch(ctx context.Context, table string, limit int) (models.Batch, Result) {
	if c.session == nil {
		return models.Batch{}, c.report("fetch", table, failure(KindNotConnected, ErrNotConnected))
	}
	if err := ValidateTableName(table); err != nil {
		return models.Batch{}, c.report("fetch", table, failure(KindInvalid, err))
	}
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	stmt := fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit)
	cols, rows, err := c.session.Select(ctx, stmt)
	if err != nil {
		return models.Batch{}, c.report("fetch", table, failure(KindQuery, fmt.Errorf("query %s: %w", table, err)))
	}

	records := make([]models.Record, len(rows))
	for i, row := range rows {
		rec := make(models.Record, len(cols))
		for _, col := range cols {
			rec[col] = utils.Normalize(row[col])
		}
		records[i] = rec
	}
	batch, err := models.NewBatch(cols, records)
	if err != nil {
		return models.Batch{}, c.report("fetch", table, failure(KindQuery, err))
	}
	return batch, c.report("fetch", table, ok(batch.Len()))
}

package etl

import (
	"context"
	"sync"

	"github.com/BartekS5/astramigrate/pkg/models"
)

func mustBatch(columns []string, records ...models.Record) models.Batch {
	b, err := models.NewBatch(columns, records)
	if err != nil {
		panic(err)
	}
	return b
}

func usersBatch() models.Batch {
	return mustBatch([]string{"id", "name"},
		models.Record{"id": 1, "name": "a"},
		models.Record{"id": 2, "name": "b"},
		models.Record{"id": 3, "name": "c"},
	)
}

// memSource serves fixed batches by table name.
type memSource struct {
	mu      sync.Mutex
	tables  map[string]models.Batch
	fail    map[string]error
	fetches []string
	limits  []int
}

func (s *memSource) Family() models.Family { return models.FamilyCassandra }

func (s *memSource) Connect(context.Context) error { return nil }

func (s *memSource) Disconnect(context.Context) error { return nil }

func (s *memSource) Fetch(_ context.Context, table string, limit int) (models.Batch, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, table)
	s.limits = append(s.limits, limit)
	if err := s.fail[table]; err != nil {
		return models.Batch{}, failure(KindQuery, err)
	}
	b, found := s.tables[table]
	if !found {
		return models.Batch{}, ok(0)
	}
	return b.Clone(), ok(b.Len())
}

// memDestination appends inserted records per target.
type memDestination struct {
	mu          sync.Mutex
	connectErr  error
	failTarget  map[string]error
	panicOn     string
	onInsert    func(target string)
	connected   bool
	connects    int
	disconnects int
	inserts     []string
	stored      map[string][]models.Record
}

func (d *memDestination) Family() models.Family { return models.FamilyPostgres }

func (d *memDestination) Connect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	if d.connectErr != nil {
		return &ConnectError{Family: models.FamilyPostgres, Err: d.connectErr}
	}
	d.connected = true
	return nil
}

func (d *memDestination) Disconnect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects++
	d.connected = false
	return nil
}

func (d *memDestination) Insert(_ context.Context, batch models.Batch, target string) Result {
	if d.onInsert != nil {
		d.onInsert(target)
	}
	if target == d.panicOn {
		panic("destination blew up")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return failure(KindNotConnected, ErrNotConnected)
	}
	d.inserts = append(d.inserts, target)
	if err := d.failTarget[target]; err != nil {
		return failure(KindInsert, err)
	}
	if d.stored == nil {
		d.stored = make(map[string][]models.Record)
	}
	d.stored[target] = append(d.stored[target], batch.Clone().Records...)
	return ok(batch.Len())
}

// registryFor returns a registry whose postgres factory hands out d and
// records what it was built with.
func registryFor(d *memDestination, gotCfg *models.ConnectionConfig, gotOpts *Options) *Registry {
	r := NewRegistry()
	r.Register(models.FamilyPostgres, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		if gotCfg != nil {
			*gotCfg = cfg
		}
		if gotOpts != nil {
			*gotOpts = opts
		}
		return d, nil
	})
	return r
}

// fakeSession answers every Select with the same columns and rows.
type fakeSession struct {
	cols   []string
	rows   []map[string]interface{}
	err    error
	stmts  []string
	closed int
}

func (f *fakeSession) Select(_ context.Context, stmt string) ([]string, []map[string]interface{}, error) {
	f.stmts = append(f.stmts, stmt)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.cols, f.rows, nil
}

func (f *fakeSession) Close() { f.closed++ }

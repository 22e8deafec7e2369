package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BartekS5/astramigrate/pkg/logger"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/gofrs/uuid"
)

// DefaultDisconnectTimeout bounds the teardown that runs after a run ends,
// even when the run's own context is already done.
const DefaultDisconnectTimeout = 10 * time.Second

// Migrator moves mapped tables from one live source into one destination
// per run. Runs are strictly sequential; a Migrator runs one at a time.
type Migrator struct {
	Source   Source
	Registry *Registry
	Sink     logger.Sink
	// Limit bounds each fetch. Zero means DefaultFetchLimit.
	Limit int
	// DryRun fetches every entry but skips the inserts.
	DryRun bool
	// Options are handed to each destination built for a run.
	Options Options

	mu sync.Mutex
}

func NewMigrator(src Source, sink logger.Sink) *Migrator {
	if sink == nil {
		sink = logger.Nop()
	}
	return &Migrator{
		Source:   src,
		Registry: DefaultRegistry(),
		Sink:     sink,
		Limit:    DefaultFetchLimit,
	}
}

// runSink stamps every event of a run with its id.
type runSink struct {
	next  logger.Sink
	runID string
}

func (s runSink) Record(e logger.Event) {
	e.RunID = s.runID
	s.next.Record(e)
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id.String()
}

func (m *Migrator) sink() logger.Sink {
	if m.Sink == nil {
		return logger.Nop()
	}
	return m.Sink
}

// Migrate runs every entry of mapping from the source into a destination of
// family built from cfg. A failed entry never stops the run; only invalid
// input, a failed connect, cancellation or an unexpected fault fail it.
func (m *Migrator) Migrate(ctx context.Context, family models.Family, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	rep := &Report{RunID: newRunID(), Family: family, State: StateIdle, StartedAt: time.Now()}
	sink := runSink{next: m.sink(), runID: rep.RunID}
	defer func() { rep.FinishedAt = time.Now() }()

	fail := func(err error) *Report {
		rep.Err = err
		m.transition(sink, rep, StateFailed)
		sink.Record(logger.Event{Level: logger.LevelError, Op: "run", Family: string(family), Err: err,
			Msg: fmt.Sprintf("Migration to %s failed", family)})
		return rep
	}

	if m.Source == nil {
		return fail(fmt.Errorf("migrator has no source"))
	}
	if err := mapping.Validate(); err != nil {
		return fail(err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}
	registry := m.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	opts := m.Options
	opts.Sink = sink
	dest, err := registry.New(family, cfg, opts)
	if err != nil {
		return fail(err)
	}

	m.transition(sink, rep, StateConnecting)
	if err := dest.Connect(ctx); err != nil {
		// Nothing was acquired; Disconnect is a no-op but keeps teardown symmetric.
		_ = dest.Disconnect(ctx)
		return fail(err)
	}
	m.transition(sink, rep, StateConnected)

	m.transition(sink, rep, StateMigrating)
	fault := m.migrateEntries(ctx, sink, dest, mapping, rep)

	m.transition(sink, rep, StateDisconnecting)
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultDisconnectTimeout)
	rep.DisconnectErr = dest.Disconnect(dctx)
	cancel()

	if fault != nil {
		return fail(fault)
	}
	m.transition(sink, rep, StateDone)
	sink.Record(logger.Event{Level: logger.LevelInfo, Op: "run", Family: string(family), Rows: rep.RowsInserted(),
		Msg: fmt.Sprintf("Migration to %s completed: %d/%d entries ok", family, len(rep.Entries)-len(rep.Failed()), len(rep.Entries))})
	return rep
}

// migrateEntries walks the mapping in order. A panic escaping a connector is
// turned into the returned fault.
func (m *Migrator) migrateEntries(ctx context.Context, sink logger.Sink, dest Destination, mapping models.NameMapping, rep *Report) (fault error) {
	defer func() {
		if r := recover(); r != nil {
			fault = fmt.Errorf("unexpected fault during migration: %v", r)
		}
	}()

	for i, entry := range mapping {
		if err := ctx.Err(); err != nil {
			for _, rest := range mapping[i:] {
				rep.Entries = append(rep.Entries, EntryOutcome{
					Source: rest.Source,
					Target: rest.Target,
					Fetch:  failure(KindCanceled, err),
				})
			}
			return fmt.Errorf("migration interrupted: %w", err)
		}
		rep.Entries = append(rep.Entries, m.migrateEntry(ctx, sink, dest, entry))
	}
	return nil
}

func (m *Migrator) migrateEntry(ctx context.Context, sink logger.Sink, dest Destination, entry models.MappingEntry) EntryOutcome {
	start := time.Now()
	out := EntryOutcome{Source: entry.Source, Target: entry.Target}
	sink.Record(logger.Event{Level: logger.LevelInfo, Op: "migrate", Family: string(dest.Family()), Object: entry.Source,
		Msg: fmt.Sprintf("Migrating %s to %s", entry.Source, entry.Target)})

	limit := m.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	batch, res := m.Source.Fetch(ctx, entry.Source, limit)
	out.Fetch = res

	switch {
	case !res.OK():
	case batch.Empty():
	case m.DryRun:
		sink.Record(logger.Event{Level: logger.LevelInfo, Op: "insert", Family: string(dest.Family()), Object: entry.Target,
			Msg: fmt.Sprintf("[DRY RUN] Would insert %d records", batch.Len())})
	default:
		out.InsertAttempted = true
		out.Insert = dest.Insert(ctx, batch, entry.Target)
	}

	out.Duration = time.Since(start)
	level := logger.LevelInfo
	if !out.OK() {
		level = logger.LevelError
	}
	sink.Record(logger.Event{Level: level, Op: "entry", Family: string(dest.Family()), Object: entry.Target,
		Rows: out.Insert.Rows, Err: out.Err(), Msg: fmt.Sprintf("Entry %s -> %s finished", entry.Source, entry.Target)})
	return out
}

func (m *Migrator) transition(sink logger.Sink, rep *Report, to RunState) {
	from := rep.State
	rep.State = to
	sink.Record(logger.Event{Level: logger.LevelDebug, Op: "state", Family: string(rep.Family),
		Msg: fmt.Sprintf("%s -> %s", from, to)})
}

func (m *Migrator) MigrateToPostgres(ctx context.Context, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	return m.Migrate(ctx, models.FamilyPostgres, cfg, mapping)
}

func (m *Migrator) MigrateToMySQL(ctx context.Context, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	return m.Migrate(ctx, models.FamilyMySQL, cfg, mapping)
}

func (m *Migrator) MigrateToMSSQL(ctx context.Context, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	return m.Migrate(ctx, models.FamilyMSSQL, cfg, mapping)
}

func (m *Migrator) MigrateToOracle(ctx context.Context, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	return m.Migrate(ctx, models.FamilyOracle, cfg, mapping)
}

func (m *Migrator) MigrateToMongo(ctx context.Context, cfg models.ConnectionConfig, mapping models.NameMapping) *Report {
	return m.Migrate(ctx, models.FamilyMongo, cfg, mapping)
}

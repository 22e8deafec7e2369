package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/BartekS5/astramigrate/internal/config"
	"github.com/BartekS5/astramigrate/internal/etl"
	"github.com/BartekS5/astramigrate/pkg/logger"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// runSettings are the knobs of one run after flags, job file and
// environment have been merged.
type runSettings struct {
	limit      int
	timeout    time.Duration
	dryRun     bool
	autoCreate bool
	queryLog   bool
	progress   bool
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func runMigration(cmd *cobra.Command, opts *MigrateOptions, family models.Family) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var mapping models.NameMapping
	if opts.MappingFile != "" {
		mapping, err = config.LoadMapping(afero.NewOsFs(), opts.MappingFile)
		if err != nil {
			return err
		}
	}
	if len(opts.Maps) > 0 {
		pairs, err := models.ParseMappingPairs(opts.Maps)
		if err != nil {
			return err
		}
		mapping = append(mapping, pairs...)
	}
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("%w (use --map source=target or --mapping file.json)", err)
	}

	conn := config.Merge(opts.Conn.config(), config.DestinationFromEnv(family))
	return execute(cmd, cfg, family, conn, mapping, runSettings{
		limit:      firstPositive(opts.Limit, cfg.Limit),
		timeout:    firstDuration(opts.Timeout, cfg.Timeout),
		dryRun:     opts.DryRun,
		autoCreate: opts.AutoCreate,
		queryLog:   opts.QueryLog,
		progress:   !opts.NoProgress,
	})
}

func runJob(cmd *cobra.Command, opts *MigrateOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	job, family, err := config.LoadJob(afero.NewOsFs(), opts.JobFile)
	if err != nil {
		return err
	}

	conn := config.Merge(job.Connection, config.Merge(opts.Conn.config(), config.DestinationFromEnv(family)))
	return execute(cmd, cfg, family, conn, job.Tables, runSettings{
		limit:      firstPositive(opts.Limit, job.Limit, cfg.Limit),
		timeout:    firstDuration(opts.Timeout, cfg.Timeout),
		dryRun:     opts.DryRun || job.DryRun,
		autoCreate: opts.AutoCreate || job.AutoCreate,
		queryLog:   opts.QueryLog,
		progress:   !opts.NoProgress,
	})
}

func firstDuration(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func execute(cmd *cobra.Command, cfg *config.Config, family models.Family, conn models.ConnectionConfig, mapping models.NameMapping, s runSettings) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sink := logger.FromZerolog(*logger.Logger())

	src := etl.NewCassandraSource(cfg.Source, etl.Options{Sink: sink, ConnectTimeout: s.timeout, OpTimeout: s.timeout})
	if err := src.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := src.Disconnect(context.WithoutCancel(ctx)); err != nil {
			logger.Errorf("source: %v", err)
		}
	}()

	runSink := logger.Sink(sink)
	var bar *progressbar.ProgressBar
	if s.progress {
		bar = progressbar.NewOptions(len(mapping),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("migrating to %s", family)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		runSink = logger.Multi(sink, progressSink(bar))
	}

	m := etl.NewMigrator(src, runSink)
	m.Limit = s.limit
	m.DryRun = s.dryRun
	m.Options = etl.Options{
		QueryLog:       s.queryLog,
		AutoCreate:     s.autoCreate,
		ConnectTimeout: s.timeout,
		OpTimeout:      s.timeout,
	}

	rep := m.Migrate(ctx, family, conn, mapping)
	if bar != nil {
		_ = bar.Finish()
	}
	printReport(cmd.OutOrStdout(), rep)
	if rep.DisconnectErr != nil {
		logger.Warnf("%v", rep.DisconnectErr)
	}

	if !rep.OK() {
		return fmt.Errorf("migration to %s failed: %w", family, rep.Err)
	}
	if failed := rep.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d tables failed: %w", len(failed), len(rep.Entries), rep.EntryErrors())
	}
	return nil
}

// progressSink advances bar once per finished mapping entry.
func progressSink(bar *progressbar.ProgressBar) logger.Sink {
	return logger.SinkFunc(func(e logger.Event) {
		if e.Op == "entry" {
			_ = bar.Add(1)
		}
	})
}

func printReport(w io.Writer, rep *etl.Report) {
	fmt.Fprintf(w, "run %s (%s): %s in %s\n", rep.RunID, rep.Family, rep.State, rep.Duration().Round(time.Millisecond))
	if rep.Err != nil {
		fmt.Fprintf(w, "error: %v\n", rep.Err)
	}
	if len(rep.Entries) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTARGET\tFETCHED\tINSERTED\tSTATUS")
	for _, e := range rep.Entries {
		status := "ok"
		switch {
		case !e.Fetch.OK():
			status = "fetch " + e.Fetch.Kind.String()
		case !e.Insert.OK():
			status = "insert " + e.Insert.Kind.String()
		case !e.InsertAttempted:
			status = "skipped"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.Source, e.Target, e.Fetch.Rows, e.Insert.Rows, status)
	}
	tw.Flush()
}

func runCheck(cmd *cobra.Command, family models.Family, flags models.ConnectionConfig, timeout time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	sink := logger.FromZerolog(*logger.Logger())
	opts := etl.Options{Sink: sink, ConnectTimeout: timeout}
	dest, err := etl.DefaultRegistry().New(family, config.Merge(flags, config.DestinationFromEnv(family)), opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := etl.Probe(ctx, etl.NewCassandraSource(cfg.Source, opts), dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "source and %s are reachable\n", family)
	return nil
}

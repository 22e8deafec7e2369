package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/astramigrate/pkg/logger"
	"github.com/BartekS5/astramigrate/pkg/models"
)

// Options tune the connectors built by a Registry.
type Options struct {
	Sink logger.Sink
	// QueryLog logs every SQL statement through sqldb-logger.
	QueryLog bool
	// AutoCreate creates missing relational tables from the batch shape.
	AutoCreate bool
	// ConnectTimeout bounds Connect, OpTimeout bounds each Fetch or Insert.
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	MaxConns       int
}

// base carries what every connector needs to report and bound its calls.
type base struct {
	family models.Family
	sink   logger.Sink
	opts   Options
}

func newBase(f models.Family, opts Options) base {
	sink := opts.Sink
	if sink == nil {
		sink = logger.Nop()
	}
	return base{family: f, sink: sink, opts: opts}
}

func (b *base) Family() models.Family {
	return b.family
}

func (b *base) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, b.opts.ConnectTimeout)
}

func (b *base) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, b.opts.OpTimeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (b *base) connected(err error) error {
	if err != nil {
		err = &ConnectError{Family: b.family, Err: err}
		b.sink.Record(logger.Event{Level: logger.LevelError, Op: "connect", Family: string(b.family), Err: err,
			Msg: fmt.Sprintf("Failed to connect to %s", b.family)})
		return err
	}
	b.sink.Record(logger.Event{Level: logger.LevelInfo, Op: "connect", Family: string(b.family),
		Msg: fmt.Sprintf("Successfully connected to %s", b.family)})
	return nil
}

func (b *base) disconnected(err error) error {
	if err != nil {
		b.sink.Record(logger.Event{Level: logger.LevelError, Op: "disconnect", Family: string(b.family), Err: err,
			Msg: fmt.Sprintf("Error while disconnecting from %s", b.family)})
		return fmt.Errorf("disconnect %s: %w", b.family, err)
	}
	b.sink.Record(logger.Event{Level: logger.LevelInfo, Op: "disconnect", Family: string(b.family),
		Msg: fmt.Sprintf("Disconnected from %s", b.family)})
	return nil
}

// report emits the event for a fetch or insert outcome and passes r through.
func (b *base) report(op, object string, r Result) Result {
	if r.OK() {
		b.sink.Record(logger.Event{Level: logger.LevelInfo, Op: op, Family: string(b.family), Object: object, Rows: r.Rows,
			Msg: fmt.Sprintf("%s %s: %d rows", op, object, r.Rows)})
		return r
	}
	b.sink.Record(logger.Event{Level: logger.LevelError, Op: op, Family: string(b.family), Object: object, Err: r.Err,
		Msg: fmt.Sprintf("%s %s failed (%s)", op, object, r.Kind)})
	return r
}

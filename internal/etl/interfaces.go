package etl

import (
	"context"
	"errors"
	"fmt"

	"github.com/BartekS5/astramigrate/pkg/models"
)

// DefaultFetchLimit bounds a fetch when the caller passes no limit.
const DefaultFetchLimit = 1000

// ErrNotConnected is returned by data calls made outside a Connect/Disconnect bracket.
var ErrNotConnected = errors.New("connector is not connected")

// Connector is the lifecycle every store connector shares. Disconnect must be
// safe to call at any time, including before Connect or after a failed one.
type Connector interface {
	Family() models.Family
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Source reads bounded batches by table name.
type Source interface {
	Connector
	Fetch(ctx context.Context, table string, limit int) (models.Batch, Result)
}

// Destination appends batches to a table or collection.
type Destination interface {
	Connector
	Insert(ctx context.Context, batch models.Batch, target string) Result
}

// ErrorKind classifies why a call failed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotConnected
	KindConnection
	KindQuery
	KindInsert
	KindInvalid
	KindTimeout
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotConnected:
		return "not_connected"
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	case KindInsert:
		return "insert"
	case KindInvalid:
		return "invalid"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one fetch or insert call.
type Result struct {
	Rows      int
	Kind      ErrorKind
	Retriable bool
	Err       error
}

func (r Result) OK() bool {
	return r.Kind == KindNone
}

func ok(rows int) Result {
	return Result{Rows: rows}
}

// failure builds a Result for err. Context errors override the given kind.
func failure(kind ErrorKind, err error) Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, ErrNotConnected):
		kind = KindNotConnected
	}
	return Result{
		Kind:      kind,
		Retriable: kind == KindTimeout || kind == KindConnection,
		Err:       err,
	}
}

// ConnectError wraps a failed Connect.
type ConnectError struct {
	Family models.Family
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Family, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsConnectError reports whether err came out of a Connect call.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

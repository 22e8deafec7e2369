package etl

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Probe connects and immediately disconnects every connector concurrently.
// The group carries the first failure; the rest are collected per connector
// and reported in argument order. A failing probe does not cancel the others.
func Probe(ctx context.Context, connectors ...Connector) error {
	var g errgroup.Group
	errs := make([]error, len(connectors))
	for i, c := range connectors {
		g.Go(func() error {
			err := c.Connect(ctx)
			if err == nil {
				err = c.Disconnect(context.WithoutCancel(ctx))
			}
			errs[i] = err
			return err
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

package etl

import (
	"fmt"
	"slices"
	"sync"

	"github.com/BartekS5/astramigrate/pkg/models"
)

// Factory builds an unconnected destination for one family.
type Factory func(cfg models.ConnectionConfig, opts Options) (Destination, error)

// Registry maps store families to destination factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[models.Family]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[models.Family]Factory)}
}

// DefaultRegistry knows every destination family shipped with the module.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(models.FamilyPostgres, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		return NewPostgresDestination(cfg, opts), nil
	})
	r.Register(models.FamilyMySQL, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		return NewMySQLDestination(cfg, opts), nil
	})
	r.Register(models.FamilyMSSQL, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		return NewMSSQLDestination(cfg, opts), nil
	})
	r.Register(models.FamilyOracle, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		return NewOracleDestination(cfg, opts), nil
	})
	r.Register(models.FamilyMongo, func(cfg models.ConnectionConfig, opts Options) (Destination, error) {
		return NewMongoDestination(cfg, opts), nil
	})
	return r
}

// Register adds or replaces the factory for f.
func (r *Registry) Register(f models.Family, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f] = factory
}

func (r *Registry) Lookup(f models.Family) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[f]
	if !ok {
		return nil, fmt.Errorf("%w: no destination registered for %q", models.ErrUnknownFamily, f)
	}
	return factory, nil
}

// New builds a destination for f from cfg, filling the family default port.
func (r *Registry) New(f models.Family, cfg models.ConnectionConfig, opts Options) (Destination, error) {
	factory, err := r.Lookup(f)
	if err != nil {
		return nil, err
	}
	return factory(cfg.WithDefaults(f), opts)
}

// Families lists registered families in sorted order.
func (r *Registry) Families() []models.Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Family, 0, len(r.factories))
	for f := range r.factories {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

package etl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/BartekS5/astramigrate/pkg/database"
	"github.com/BartekS5/astramigrate/pkg/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// docStore is the part of a Mongo client the destination uses.
type docStore interface {
	InsertMany(ctx context.Context, collection string, docs []interface{}) (int, error)
	Disconnect(ctx context.Context) error
}

type mongoStore struct {
	client *mongo.Client
	db     string
}

func (m mongoStore) InsertMany(ctx context.Context, collection string, docs []interface{}) (int, error) {
	res, err := m.client.Database(m.db).Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

func (m mongoStore) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func dialMongo(ctx context.Context, uri, db string) (docStore, error) {
	client, err := database.ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	return mongoStore{client: client, db: db}, nil
}

// MongoURI builds a mongodb:// URI from cfg, authenticating against the
// configured database unless an authSource option says otherwise.
func MongoURI(c models.ConnectionConfig) string {
	q := url.Values{}
	for k, v := range c.Options {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "mongodb",
		Host:     c.Address(),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// MongoDestination writes each record as a standalone document.
type MongoDestination struct {
	base
	cfg         models.ConnectionConfig
	store       docStore
	transformer *Transformer
	dial        func(ctx context.Context, uri, db string) (docStore, error)
}

func NewMongoDestination(cfg models.ConnectionConfig, opts Options) *MongoDestination {
	return &MongoDestination{
		base:        newBase(models.FamilyMongo, opts),
		cfg:         cfg.WithDefaults(models.FamilyMongo),
		transformer: NewTransformer(),
		dial:        dialMongo,
	}
}

// Connect only succeeds once the server answered a ping.
func (m *MongoDestination) Connect(ctx context.Context) error {
	if m.store != nil {
		return nil
	}
	ctx, cancel := m.connectContext(ctx)
	defer cancel()

	store, err := m.dial(ctx, MongoURI(m.cfg), m.cfg.Database)
	if err != nil {
		return m.connected(err)
	}
	m.store = store
	return m.connected(nil)
}

func (m *MongoDestination) Disconnect(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	err := m.store.Disconnect(ctx)
	m.store = nil
	return m.disconnected(err)
}

func (m *MongoDestination) Insert(ctx context.Context, batch models.Batch, collection string) Result {
	if m.store == nil {
		return m.report("insert", collection, failure(KindNotConnected, ErrNotConnected))
	}
	if r := validateInsert(batch, collection); !r.OK() {
		return m.report("insert", collection, r)
	}
	if batch.Empty() {
		return m.report("insert", collection, ok(0))
	}

	ctx, cancel := m.opContext(ctx)
	defer cancel()

	n, err := m.store.InsertMany(ctx, collection, m.transformer.ToDocuments(batch))
	if err != nil {
		return m.report("insert", collection, failure(KindInsert, fmt.Errorf("insert into %s: %w", collection, err)))
	}
	return m.report("insert", collection, ok(n))
}

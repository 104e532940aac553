// Package docdb implements the Client API (§6): a Collection/Database
// surface over the Pipeline Runtime and Storage Collaborator, accepting
// go.mongodb.org/mongo-driver bson.D/bson.M wire literals and
// translating them to the internal Value Model at the boundary via
// internal/bsonconv.
package docdb

import (
	"github.com/AlekSi/pointer"
	"go.uber.org/zap"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/metrics"
	"github.com/docbase/docbase/internal/storage"
)

// Client is the top-level handle, analogous to a mongo.Client: a
// registry of Databases, each backed by its own storage.Catalog (the
// in-memory engine keeps every database's collections fully isolated,
// so there is no cross-database name collision to guard against).
type Client struct {
	opts Options
	log  *zap.Logger

	databases map[string]*Database
}

// NewClient returns a Client with opts applied; a nil logger defaults
// to zap's no-op logger so callers never need a nil guard.
func NewClient(opts *Options, log *zap.Logger) *Client {
	if opts == nil {
		opts = &Options{AppName: pointer.ToString("docbase")}
	}

	if log == nil {
		log = zap.NewNop()
	}

	if opts.AppName != nil {
		log = log.With(zap.String("app", *opts.AppName))
	}

	return &Client{opts: *opts, log: log, databases: make(map[string]*Database)}
}

// Database returns the named Database, creating its catalog lazily on
// first reference.
func (c *Client) Database(name string) *Database {
	if db, ok := c.databases[name]; ok {
		return db
	}

	db := &Database{
		name:    name,
		catalog: storage.NewCatalog(),
		log:     c.log.With(zap.String("db", name)),
		metrics: c.opts.Metrics,
	}
	c.databases[name] = db

	return db
}

// Database is a named collection namespace over a storage.Catalog.
type Database struct {
	name    string
	catalog storage.Catalog
	log     *zap.Logger
	metrics *metrics.PipelineMetrics
}

// Name returns the database's name.
func (d *Database) Name() string { return d.name }

// Collection returns a Collection handle for name, creating the
// backing in-memory collection on first reference.
func (d *Database) Collection(name string) *Collection {
	col := storage.EnsureCollection(d.catalog, name)

	return &Collection{
		name:    name,
		col:     col,
		catalog: d.catalog,
		log:     d.log.With(zap.String("collection", name)),
		metrics: d.metrics,
	}
}

// ListCollections returns the names of every collection created so far
// in this database (via Collection(name) or an operation that creates
// one implicitly, such as $merge/$out).
func (d *Database) ListCollections() []string {
	lister, ok := d.catalog.(interface{ Names() []string })
	if !ok {
		return nil
	}

	return lister.Names()
}

// Stats reports coarse database-level statistics.
func (d *Database) Stats() (DatabaseStats, error) {
	names := d.ListCollections()

	stats := DatabaseStats{Collections: int64(len(names))}

	for _, name := range names {
		col, err := d.catalog.Collection(name)
		if err != nil {
			return DatabaseStats{}, dberrors.NewCommandError(dberrors.CodeNamespaceNotFound, "stats: %s: %v", name, err)
		}

		n, err := countCollection(col)
		if err != nil {
			return DatabaseStats{}, err
		}

		stats.Objects += n
	}

	return stats, nil
}

// DatabaseStats is the result of Database.Stats.
type DatabaseStats struct {
	Collections int64
	Objects     int64
}

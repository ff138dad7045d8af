package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/vmihailenco/msgpack/v5"
)

// Supported persistent drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const permanentExpire int64 = -1

type cacheEntryModel struct {
	bun.BaseModel `bun:"table:remote_entities_cache,alias:ce"`

	Key     string    `bun:"cid,pk"`
	Data    []byte    `bun:"data"`
	Expire  int64     `bun:"expire,notnull"`
	Tags    string    `bun:"tags"`
	Created time.Time `bun:"created,notnull"`
}

type cacheTagModel struct {
	bun.BaseModel `bun:"table:remote_entities_cache_tags,alias:ct"`

	Tag string `bun:"tag,pk"`
	Key string `bun:"cid,pk"`
}

// PersistentConfig selects the SQL backend for the persistent gateway.
type PersistentConfig struct {
	Driver string
	DSN    string
}

// Validate checks the driver and DSN.
func (c PersistentConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return &ConfigError{Field: "Driver", Message: "must be one of sqlite3, postgres"}
	}
	if strings.TrimSpace(c.DSN) == "" {
		return &ConfigError{Field: "DSN", Message: "is required"}
	}
	return nil
}

// BunGateway stores entries in SQL through bun. Payloads are msgpack encoded and
// come back as Encoded; tags live in a side table so they can be invalidated
// without scanning entries.
type BunGateway struct {
	db  *bun.DB
	now func() time.Time
}

// BunOption customizes a BunGateway.
type BunOption func(*BunGateway)

// WithBunClock replaces time.Now, mostly for tests.
func WithBunClock(now func() time.Time) BunOption {
	return func(g *BunGateway) {
		if now != nil {
			g.now = now
		}
	}
}

// OpenBunGateway opens the configured database and prepares the cache tables.
func OpenBunGateway(ctx context.Context, cfg PersistentConfig, opts ...BunOption) (*BunGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	var db *bun.DB
	switch cfg.Driver {
	case DriverSQLite:
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		db = bun.NewDB(sqldb, pgdialect.New())
	}

	g, err := NewBunGateway(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// NewBunGateway wraps an existing bun database and creates the tables if needed.
func NewBunGateway(ctx context.Context, db *bun.DB, opts ...BunOption) (*BunGateway, error) {
	g := &BunGateway{db: db, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	for _, model := range []any{(*cacheEntryModel)(nil), (*cacheTagModel)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("create cache table: %w", err)
		}
	}
	return g, nil
}

// Get returns the live entry stored under key with an Encoded payload.
func (g *BunGateway) Get(ctx context.Context, key string) (Entry, bool, error) {
	var m cacheEntryModel
	err := g.db.NewSelect().Model(&m).Where("cid = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	entry := Entry{
		Key:     m.Key,
		Payload: Encoded(m.Data),
		Tags:    strings.Fields(m.Tags),
		Created: m.Created,
	}
	if m.Expire != permanentExpire {
		entry.Expires = time.UnixMilli(m.Expire)
	}

	if entry.Expired(g.now()) {
		if err := g.Delete(ctx, key); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set upserts payload under key and replaces its tag rows. A zero maxAge stores
// nothing.
func (g *BunGateway) Set(ctx context.Context, key string, payload any, maxAge time.Duration, tags []string) error {
	if maxAge == 0 {
		return nil
	}

	data, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}

	now := g.now()
	tags = dedupeStrings(tags)
	m := &cacheEntryModel{
		Key:     key,
		Data:    data,
		Expire:  permanentExpire,
		Tags:    strings.Join(tags, " "),
		Created: now,
	}
	if exp := expiresAt(now, maxAge); !exp.IsZero() {
		m.Expire = exp.UnixMilli()
	}

	return g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(m).
			On("CONFLICT (cid) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("expire = EXCLUDED.expire").
			Set("tags = EXCLUDED.tags").
			Set("created = EXCLUDED.created").
			Exec(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().Model((*cacheTagModel)(nil)).Where("cid = ?", key).Exec(ctx); err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}

		rows := make([]cacheTagModel, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, cacheTagModel{Tag: tag, Key: key})
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

// Delete removes the given keys and their tag rows.
func (g *BunGateway) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*cacheEntryModel)(nil)).Where("cid IN (?)", bun.In(keys)).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*cacheTagModel)(nil)).Where("cid IN (?)", bun.In(keys)).Exec(ctx)
		return err
	})
}

// InvalidateTags removes every entry registered under any of the tags.
func (g *BunGateway) InvalidateTags(ctx context.Context, tags ...string) error {
	tags = dedupeStrings(tags)
	if len(tags) == 0 {
		return nil
	}

	var keys []string
	err := g.db.NewSelect().
		Model((*cacheTagModel)(nil)).
		Column("cid").
		Where("tag IN (?)", bun.In(tags)).
		Scan(ctx, &keys)
	if err != nil {
		return err
	}
	return g.Delete(ctx, dedupeStrings(keys)...)
}

// Close closes the underlying database.
func (g *BunGateway) Close() error {
	return g.db.Close()
}

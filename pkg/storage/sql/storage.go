package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/klwxsrx/go-auth-client/pkg/storage"
)

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"

	defaultConnectionTimeout = 20 * time.Second

	tableName   = "client_storage"
	keyColumn   = "storage_key"
	valueColumn = "storage_value"

	tableDDL = `
		CREATE TABLE IF NOT EXISTS client_storage (
			storage_key text PRIMARY KEY,
			storage_value text NOT NULL
		)
	`
)

type (
	Dialect string

	Config struct {
		Dialect           Dialect
		DSN               string
		ConnectionTimeout time.Duration
	}

	Storage struct {
		db      *sqlx.DB
		builder sq.StatementBuilderType
	}
)

func New(db *sqlx.DB, dialect Dialect) *Storage {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &Storage{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Open connects to the database, waits for it to answer a ping and creates the storage table.
func Open(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaultConnectionTimeout
	}
	if config.Dialect != DialectSQLite && config.Dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", config.Dialect)
	}

	db, err := openConnection(ctx, config)
	if err != nil {
		return nil, err
	}

	s := New(db, config.Dialect)
	err = s.Migrate(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, tableDDL)
	if err != nil {
		return fmt.Errorf("failed to create storage table: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.selectQuery(key)
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	var value string
	err = s.db.GetContext(ctx, &value, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select storage key %s: %w", key, err)
	}

	return []byte(value), nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.upsertQuery(key, value)
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert storage key %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	query, args, err := s.deleteQuery(key)
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete storage key %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) selectQuery(key string) (string, []any, error) {
	return s.builder.
		Select(valueColumn).
		From(tableName).
		Where(sq.Eq{keyColumn: key}).
		ToSql()
}

func (s *Storage) upsertQuery(key string, value []byte) (string, []any, error) {
	return s.builder.
		Insert(tableName).
		Columns(keyColumn, valueColumn).
		Values(key, string(value)).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s", keyColumn, valueColumn, valueColumn)).
		ToSql()
}

func (s *Storage) deleteQuery(key string) (string, []any, error) {
	return s.builder.
		Delete(tableName).
		Where(sq.Eq{keyColumn: key}).
		ToSql()
}

func openConnection(ctx context.Context, config Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(string(config.Dialect), config.DSN)
	if err != nil {
		return nil, err
	}
	if config.Dialect == DialectSQLite {
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = config.ConnectionTimeout / 4
	eb.MaxElapsedTime = config.ConnectionTimeout

	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	return db, nil
}

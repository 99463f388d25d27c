package account

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const pgUniqueViolation = "23505"

const migrationsDir = "data/sql/migrations"

// PersistenceConfig configures the credential store connection
type PersistenceConfig interface {
	GetDebug() bool
	GetDriver() string
	GetServer() string
	GetPingTimeout() time.Duration
	GetOtelIdentifier() string
}

var registerModels sync.Once

// IsPostgresDriver reports whether driver names a PostgreSQL driver,
// anything else is handed to the SQLite driver
func IsPostgresDriver(driver string) bool {
	switch driver {
	case "postgres", "postgresql", "pgx":
		return true
	}
	return false
}

// OpenDB opens the credential store and applies the embedded
// migrations for its dialect
func OpenDB(ctx context.Context, cfg PersistenceConfig) (*bun.DB, error) {
	sqldb, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*User)(nil))
	})

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create persistence client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()
	if err := client.DB().PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to reach database")
	}

	migrations, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load migrations")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsDir),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "migrations are missing a dialect")
	}

	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to run migrations")
	}

	return client.DB(), nil
}

func openSQL(cfg PersistenceConfig) (*sql.DB, schema.Dialect, error) {
	if IsPostgresDriver(cfg.GetDriver()) {
		sqldb, err := sql.Open("pgx", cfg.GetServer())
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to open postgres database")
		}
		return sqldb, pgdialect.New(), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetServer())
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
	}
	// SQLite serializes writers, a single connection avoids SQLITE_BUSY/LOCKED
	sqldb.SetMaxOpenConns(1)
	return sqldb, sqlitedialect.New(), nil
}

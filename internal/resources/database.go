package resources

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

// Database brings a relational datastore online through a pgx connection
// pool. Beyond the shared three-phase lifecycle it exposes a
// single-transaction-at-a-time transaction facility; a Database closed
// mid-transaction rolls the transaction back before releasing the pool.
type Database struct {
	base
	cfg   *config.DatabaseConfig
	retry retryer

	mu   sync.Mutex
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// NewDatabase creates the database variant from its configuration.
// cfg may be nil; validation reports it.
func NewDatabase(name string, cfg *config.DatabaseConfig, logger *zap.Logger) *Database {
	d := &Database{
		base: newBase(name, logger),
		cfg:  cfg,
	}
	if cfg != nil {
		d.retry = newRetryer(cfg.Retry, d.status, d.logger)
	}
	return d
}

// ValidateConfiguration checks every required field and reports each
// violation as a distinct status error.
func (d *Database) ValidateConfiguration() error {
	if d.cfg == nil {
		return d.fail(errors.NewConfiguration("database configuration is missing"))
	}
	return validateConfig(d.status, d.cfg)
}

// TestConnection opens a short-lived connection and pings it, retrying
// transient failures with backoff. The probe does not touch durable state.
func (d *Database) TestConnection(ctx context.Context) error {
	return d.retry.do(ctx, "database connection probe", func(ctx context.Context) error {
		probeCtx := ctx
		if timeout := d.cfg.ConnectTimeout.Std(); timeout > 0 {
			var cancel context.CancelFunc
			probeCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		conn, err := pgx.Connect(probeCtx, d.cfg.DSN())
		if err != nil {
			return errors.NewConnectivity("database unreachable", err)
		}
		defer conn.Close(probeCtx)
		if err := conn.Ping(probeCtx); err != nil {
			return errors.NewConnectivity("database ping failed", err)
		}
		return nil
	})
}

// Initialize opens the long-lived pool and records server diagnostics.
// A second call on an initialized Database is a no-op.
func (d *Database) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(d.cfg.DSN())
	if err != nil {
		return d.fail(errors.NewResource("invalid database connection string", err))
	}
	if d.cfg.MaxConns > 0 {
		poolCfg.MaxConns = d.cfg.MaxConns
	}
	if timeout := d.cfg.ConnectTimeout.Std(); timeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = timeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return d.fail(errors.NewResource("failed to create connection pool", err))
	}

	if err := d.retry.do(ctx, "database pool ping", func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.NewConnectivity("database pool ping failed", err)
		}
		return nil
	}); err != nil {
		pool.Close()
		return err
	}

	var version string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err == nil {
		d.status.AddData("server_version", version)
	}
	d.status.AddData("database", d.cfg.Database)
	d.status.AddData("host", d.cfg.Host)
	d.status.AddData("max_conns", poolCfg.MaxConns)

	d.pool = pool
	d.logger.Info("database pool opened",
		zap.String("host", d.cfg.Host),
		zap.String("database", d.cfg.Database),
	)
	return nil
}

// Pool returns the live connection pool, or nil before initialization.
func (d *Database) Pool() *pgxpool.Pool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool
}

// BeginTransaction starts a transaction. Beginning while one is already
// active is a usage error.
func (d *Database) BeginTransaction(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool == nil {
		return errors.NewUsage("cannot begin transaction: database is not initialized")
	}
	if d.tx != nil {
		return errors.NewUsage("cannot begin transaction: a transaction is already active")
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return errors.NewResource("failed to begin transaction", err)
	}
	d.tx = tx
	return nil
}

// Commit commits the active transaction. Committing with none active is a
// usage error.
func (d *Database) Commit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx == nil {
		return errors.NewUsage("cannot commit: no active transaction")
	}
	err := d.tx.Commit(ctx)
	d.tx = nil
	if err != nil {
		return errors.NewResource("transaction commit failed", err)
	}
	return nil
}

// Rollback aborts the active transaction. Rolling back with none active is
// a usage error.
func (d *Database) Rollback(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx == nil {
		return errors.NewUsage("cannot rollback: no active transaction")
	}
	err := d.tx.Rollback(ctx)
	d.tx = nil
	if err != nil {
		return errors.NewResource("transaction rollback failed", err)
	}
	return nil
}

// Close rolls back any transaction left active and releases the pool. It is
// safe to call on an uninitialized Database.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tx != nil {
		if err := d.tx.Rollback(ctx); err != nil {
			d.logger.Warn("rollback on close failed", zap.Error(err))
		}
		d.tx = nil
	}
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
		d.logger.Info("database pool closed")
	}
	return nil
}

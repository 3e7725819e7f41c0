package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bakehouse/internal/core/tx"
	"bakehouse/pkg/logger"
)

var tracer = otel.Tracer("bakehouse/storage/postgres")

var (
	_ tx.Manager     = (*TxManager)(nil)
	_ tx.Snapshotter = (*TxManager)(nil)
)

// TxOptions configures a transaction.
type TxOptions struct {
	IsolationLevel pgx.TxIsoLevel
	AccessMode     pgx.TxAccessMode

	// StatementTimeout bounds every statement in the transaction (0 = server default)
	StatementTimeout time.Duration

	// LockTimeout bounds waits on row and advisory locks (0 = server default)
	LockTimeout time.Duration
}

// DefaultTxOptions is used for ledger mutations. Row locks (SELECT ... FOR UPDATE)
// and scope advisory locks provide the ordering, so READ COMMITTED suffices.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
		LockTimeout:      10 * time.Second,
	}
}

// TxManager keeps the active pgx.Tx in the context so repositories
// transparently join the caller's transaction.
type TxManager struct {
	pool     *pgxpool.Pool
	defaults TxOptions
}

// NewTxManager creates a transaction manager with DefaultTxOptions.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, defaults: DefaultTxOptions()}
}

// WithTimeouts overrides the default statement and lock timeouts.
// Zero keeps the current value.
func (m *TxManager) WithTimeouts(statement, lock time.Duration) *TxManager {
	if statement > 0 {
		m.defaults.StatementTimeout = statement
	}
	if lock > 0 {
		m.defaults.LockTimeout = lock
	}
	return m
}

type txKey struct{}

// Tx is the transaction carried in a context.
type Tx struct {
	pgx.Tx
	opts TxOptions
}

// RunInTransaction executes fn with the default options, joining an active transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.defaults, fn)
}

// Snapshot runs fn in a read-only REPEATABLE READ transaction: every query
// sees the same committed state. Inside an active transaction fn joins it.
func (m *TxManager) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.defaults
	opts.IsolationLevel = pgx.RepeatableRead
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

// RunInTransactionWithOptions executes fn with custom options. Options of a
// joined outer transaction win.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if existing := m.GetTx(ctx); existing != nil {
		if opts.AccessMode == pgx.ReadWrite && existing.opts.AccessMode == pgx.ReadOnly {
			return fmt.Errorf("write transaction requested inside a read-only one")
		}
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "db.transaction",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
			attribute.String("tx.access_mode", string(opts.AccessMode)),
		))
	defer span.End()

	err := m.run(ctx, opts, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
	}
	return err
}

func (m *TxManager) run(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := applyTimeouts(ctx, pgTx, opts); err != nil {
		rollback(ctx, pgTx, err)
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx, opts: opts})
	if err := fn(txCtx); err != nil {
		rollback(ctx, pgTx, err)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// applyTimeouts sets transaction-local timeouts; they reset at COMMIT/ROLLBACK.
func applyTimeouts(ctx context.Context, pgTx pgx.Tx, opts TxOptions) error {
	if opts.StatementTimeout <= 0 && opts.LockTimeout <= 0 {
		return nil
	}
	_, err := pgTx.Exec(ctx,
		`SELECT set_config('statement_timeout', $1, true), set_config('lock_timeout', $2, true)`,
		timeoutSetting(opts.StatementTimeout), timeoutSetting(opts.LockTimeout),
	)
	if err != nil {
		return fmt.Errorf("set transaction timeouts: %w", err)
	}
	return nil
}

func timeoutSetting(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// rollback runs on a context detached from cancellation so a cancelled
// request still releases its locks.
func rollback(ctx context.Context, pgTx pgx.Tx, cause error) {
	if err := pgTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "cause", cause)
	}
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is satisfied by both pgx.Tx and *pgxpool.Pool,
// so repos work inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the active transaction if ctx carries one, otherwise the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}

// RequireTx returns the active transaction; row locks and outbox writes must not run on the bare pool.
func (m *TxManager) RequireTx(ctx context.Context, op string) (*Tx, error) {
	t := m.GetTx(ctx)
	if t == nil {
		return nil, fmt.Errorf("%s requires transaction context", op)
	}
	return t, nil
}

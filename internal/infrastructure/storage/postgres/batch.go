package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Statement is one write of a pipelined batch. ExpectRows > 0 turns a
// different affected-row count into an error.
type Statement struct {
	Query      squirrel.Sqlizer
	ExpectRows int64
}

// ExecBatch sends stmts in one round-trip inside the current transaction.
func (m *TxManager) ExecBatch(ctx context.Context, stmts ...Statement) error {
	tx, err := m.RequireTx(ctx, "ExecBatch")
	if err != nil || len(stmts) == 0 {
		return err
	}

	var batch pgx.Batch
	for i, st := range stmts {
		sql, args, err := st.Query.ToSql()
		if err != nil {
			return fmt.Errorf("build statement %d: %w", i, err)
		}
		batch.Queue(sql, args...)
	}

	results := tx.SendBatch(ctx, &batch)
	defer results.Close()

	for i, st := range stmts {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
		if n := tag.RowsAffected(); st.ExpectRows > 0 && n != st.ExpectRows {
			return fmt.Errorf("statement %d: affected %d rows, want %d", i, n, st.ExpectRows)
		}
	}
	return nil
}

// CopyRows bulk-inserts rows with COPY inside the current transaction.
// Values in each row follow columns.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := m.RequireTx(ctx, "CopyRows")
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

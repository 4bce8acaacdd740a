package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// Tx 事务内可用的操作
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// ExecBatch 以 pipeline 方式执行同一语句的多组参数
	ExecBatch(ctx context.Context, sql string, argsList [][]any) (int64, error)
}

type txWrapper struct {
	tx pgx.Tx
}

func (t *txWrapper) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return result.RowsAffected(), nil
}

func (t *txWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txWrapper) ExecBatch(ctx context.Context, sql string, argsList [][]any) (int64, error) {
	batch := &pgx.Batch{}
	for _, args := range argsList {
		batch.Queue(sql, args...)
	}
	results := t.tx.SendBatch(ctx, batch)
	defer results.Close()

	var total int64
	for i := range argsList {
		ct, err := results.Exec()
		if err != nil {
			return total, errors.Wrapf(err, "batch exec failed at index %d", i)
		}
		total += ct.RowsAffected()
	}
	return total, nil
}

// WithTx 在主库事务中执行 fn；fn 返回错误时回滚，否则提交
func (c *Client) WithTx(ctx context.Context, fn func(Tx) error) error {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, c.getMaster(), func(tx pgx.Tx) error {
		return fn(&txWrapper{tx: tx})
	})
	return errors.Wrap(err, "transaction")
}

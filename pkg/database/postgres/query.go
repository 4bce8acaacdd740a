package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// applyQueryTimeout 应用查询超时到 context
func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// timeoutRow Scan 完成后释放超时 context
type timeoutRow struct {
	row    pgx.Row
	cancel context.CancelFunc
}

func (r *timeoutRow) Scan(dest ...any) error {
	defer r.cancel()
	return r.row.Scan(dest...)
}

// QueryRow 单行查询（从库）；无结果时 Scan 返回 pgx.ErrNoRows，用 IsNoRows 判断
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := c.applyQueryTimeout(ctx)
	return &timeoutRow{row: c.getSlave().QueryRow(ctx, sql, args...), cancel: cancel}
}

// QueryRowMaster 单行查询（主库），用于写后读与 RETURNING
func (c *Client) QueryRowMaster(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := c.applyQueryTimeout(ctx)
	return &timeoutRow{row: c.getMaster().QueryRow(ctx, sql, args...), cancel: cancel}
}

// QueryAll 多行查询（从库），scan 对每一行调用一次
func (c *Client) QueryAll(ctx context.Context, sql string, args []any, scan func(pgx.Rows) error) error {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	rows, err := c.getSlave().Query(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterate rows")
}

// Exec 执行写操作（主库），返回影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	result, err := c.getMaster().Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return result.RowsAffected(), nil
}

package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/database/postgres"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS players (
	user_id    TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_questions (
	id            TEXT PRIMARY KEY,
	position      INTEGER NOT NULL,
	question      TEXT NOT NULL,
	options       JSONB NOT NULL,
	correct_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_players_updated_at ON players (updated_at);
`

// PostgresDAO 基于 pgx 的存储
type PostgresDAO struct {
	db     *postgres.Client
	logger logger.Logger
	obs    observer
}

// NewPostgresDAO 创建 Postgres 存储
func NewPostgresDAO(db *postgres.Client, l logger.Logger, m *metrics.PlayerMetrics) *PostgresDAO {
	return &PostgresDAO{
		db:     db,
		logger: l.Named("dao.postgres"),
		obs:    observer{backend: "postgres", m: m},
	}
}

// Migrate 建表
func (d *PostgresDAO) Migrate(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, postgresSchema); err != nil {
		return errors.Wrap(err, "migrate postgres schema")
	}
	return nil
}

// Close 关闭连接池
func (d *PostgresDAO) Close() error {
	return d.db.Close()
}

// GetPlayer 读取文档
func (d *PostgresDAO) GetPlayer(ctx context.Context, userID string) (doc *playerdoc.PlayerState, err error) {
	defer func(start time.Time) { d.obs.done("get_player", start, err) }(time.Now())

	query, args, err := postgres.QueryBuilder.
		Select("doc").
		From("players").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	var raw []byte
	if err := d.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if postgres.IsNoRows(err) {
			return nil, errors.Wrapf(ErrPlayerNotFound, "user %s", userID)
		}
		d.logger.ErrorContext(ctx, "failed to get player", "user_id", userID, "error", err)
		return nil, errors.Wrapf(err, "get player %s", userID)
	}
	return decodeDoc(userID, raw)
}

// CreatePlayer 插入新文档
func (d *PostgresDAO) CreatePlayer(ctx context.Context, doc *playerdoc.PlayerState) (err error) {
	defer func(start time.Time) { d.obs.done("create_player", start, err) }(time.Now())

	raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	query, args, err := postgres.QueryBuilder.
		Insert("players").
		Columns("user_id", "id", "doc", "created_at", "updated_at").
		Values(doc.UserID, doc.ID, raw, doc.CreatedAt, doc.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build query")
	}

	n, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to create player", "user_id", doc.UserID, "error", err)
		return errors.Wrapf(err, "create player %s", doc.UserID)
	}
	if n == 0 {
		return errors.Wrapf(ErrPlayerExists, "user %s", doc.UserID)
	}
	return nil
}

// ReplacePlayer 整文档替换
func (d *PostgresDAO) ReplacePlayer(ctx context.Context, doc *playerdoc.PlayerState) (err error) {
	defer func(start time.Time) { d.obs.done("replace_player", start, err) }(time.Now())

	raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	query, args, err := postgres.QueryBuilder.
		Update("players").
		Set("doc", raw).
		Set("updated_at", doc.UpdatedAt).
		Where(squirrel.Eq{"user_id": doc.UserID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build query")
	}

	n, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to replace player", "user_id", doc.UserID, "error", err)
		return errors.Wrapf(err, "replace player %s", doc.UserID)
	}
	if n == 0 {
		return errors.Wrapf(ErrPlayerNotFound, "user %s", doc.UserID)
	}
	return nil
}

// ListQuiz 按位置顺序读取题库
func (d *PostgresDAO) ListQuiz(ctx context.Context) (qs []playerdoc.QuizQuestion, err error) {
	defer func(start time.Time) { d.obs.done("list_quiz", start, err) }(time.Now())

	query, args, err := postgres.QueryBuilder.
		Select("id", "question", "options", "correct_index").
		From("quiz_questions").
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	qs = []playerdoc.QuizQuestion{}
	err = d.db.QueryAll(ctx, query, args, func(rows pgx.Rows) error {
		var (
			q   playerdoc.QuizQuestion
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Question, &raw, &q.CorrectIndex); err != nil {
			return errors.Wrap(err, "scan quiz")
		}
		opts, err := decodeOptions(q.ID, raw)
		if err != nil {
			return err
		}
		q.Options = opts
		qs = append(qs, q)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list quiz")
	}
	return qs, nil
}

// ReplaceQuiz 在事务中整体替换题库
func (d *PostgresDAO) ReplaceQuiz(ctx context.Context, questions []playerdoc.QuizQuestion) (err error) {
	defer func(start time.Time) { d.obs.done("replace_quiz", start, err) }(time.Now())

	insert := "INSERT INTO quiz_questions (id, position, question, options, correct_index) VALUES ($1, $2, $3, $4, $5)"
	argsList := make([][]any, 0, len(questions))
	for i, q := range questions {
		raw, err := encodeOptions(q)
		if err != nil {
			return err
		}
		argsList = append(argsList, []any{q.ID, i, q.Question, raw, q.CorrectIndex})
	}

	return d.db.WithTx(ctx, func(tx postgres.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM quiz_questions"); err != nil {
			return err
		}
		if len(argsList) == 0 {
			return nil
		}
		_, err := tx.ExecBatch(ctx, insert, argsList)
		return err
	})
}

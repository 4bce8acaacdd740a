package dao

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS players (
	user_id    TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_questions (
	id            TEXT PRIMARY KEY,
	position      INTEGER NOT NULL,
	question      TEXT NOT NULL,
	options       TEXT NOT NULL,
	correct_index INTEGER NOT NULL
);
`

// SQLiteConfig 嵌入式存储配置
type SQLiteConfig struct {
	// Path 数据库文件；":memory:" 为内存库
	Path string `mapstructure:"path"`
}

// SQLiteDAO 基于 sqlx + modernc sqlite 的存储，适合单机部署与测试
type SQLiteDAO struct {
	db     *sqlx.DB
	sb     squirrel.StatementBuilderType
	logger logger.Logger
	obs    observer
}

type quizRow struct {
	ID           string `db:"id"`
	Question     string `db:"question"`
	Options      string `db:"options"`
	CorrectIndex int    `db:"correct_index"`
}

// OpenSQLite 打开数据库；单连接串行化写入，避免 SQLITE_BUSY
func OpenSQLite(cfg *SQLiteConfig, l logger.Logger, m *metrics.PlayerMetrics) (*SQLiteDAO, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteDAO{
		db:     db,
		sb:     squirrel.StatementBuilder.RunWith(db),
		logger: l.Named("dao.sqlite"),
		obs:    observer{backend: "sqlite", m: m},
	}, nil
}

// Migrate 建表
func (d *SQLiteDAO) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "migrate sqlite schema")
	}
	return nil
}

// Close 关闭数据库
func (d *SQLiteDAO) Close() error {
	return d.db.Close()
}

// GetPlayer 读取文档
func (d *SQLiteDAO) GetPlayer(ctx context.Context, userID string) (doc *playerdoc.PlayerState, err error) {
	defer func(start time.Time) { d.obs.done("get_player", start, err) }(time.Now())

	query, args, err := d.sb.Select("doc").From("players").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	var raw string
	if err := d.db.GetContext(ctx, &raw, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrPlayerNotFound, "user %s", userID)
		}
		d.logger.ErrorContext(ctx, "failed to get player", "user_id", userID, "error", err)
		return nil, errors.Wrapf(err, "get player %s", userID)
	}
	return decodeDoc(userID, []byte(raw))
}

// CreatePlayer 插入新文档
func (d *SQLiteDAO) CreatePlayer(ctx context.Context, doc *playerdoc.PlayerState) (err error) {
	defer func(start time.Time) { d.obs.done("create_player", start, err) }(time.Now())

	raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	res, err := d.sb.Insert("players").
		Columns("user_id", "id", "doc", "created_at", "updated_at").
		Values(doc.UserID, doc.ID, string(raw), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt)).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to create player", "user_id", doc.UserID, "error", err)
		return errors.Wrapf(err, "create player %s", doc.UserID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrPlayerExists, "user %s", doc.UserID)
	}
	return nil
}

// ReplacePlayer 整文档替换
func (d *SQLiteDAO) ReplacePlayer(ctx context.Context, doc *playerdoc.PlayerState) (err error) {
	defer func(start time.Time) { d.obs.done("replace_player", start, err) }(time.Now())

	raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	res, err := d.sb.Update("players").
		Set("doc", string(raw)).
		Set("updated_at", formatTime(doc.UpdatedAt)).
		Where(squirrel.Eq{"user_id": doc.UserID}).
		ExecContext(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to replace player", "user_id", doc.UserID, "error", err)
		return errors.Wrapf(err, "replace player %s", doc.UserID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrPlayerNotFound, "user %s", doc.UserID)
	}
	return nil
}

// ListQuiz 按位置顺序读取题库
func (d *SQLiteDAO) ListQuiz(ctx context.Context) (qs []playerdoc.QuizQuestion, err error) {
	defer func(start time.Time) { d.obs.done("list_quiz", start, err) }(time.Now())

	query, args, err := d.sb.Select("id", "question", "options", "correct_index").
		From("quiz_questions").
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	var rows []quizRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list quiz")
	}
	qs = make([]playerdoc.QuizQuestion, 0, len(rows))
	for _, r := range rows {
		opts, err := decodeOptions(r.ID, []byte(r.Options))
		if err != nil {
			return nil, err
		}
		qs = append(qs, playerdoc.QuizQuestion{
			ID: r.ID, Question: r.Question, Options: opts, CorrectIndex: r.CorrectIndex,
		})
	}
	return qs, nil
}

// ReplaceQuiz 在事务中整体替换题库
func (d *SQLiteDAO) ReplaceQuiz(ctx context.Context, questions []playerdoc.QuizQuestion) (err error) {
	defer func(start time.Time) { d.obs.done("replace_quiz", start, err) }(time.Now())

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM quiz_questions"); err != nil {
		return errors.Wrap(err, "clear quiz")
	}
	for i, q := range questions {
		raw, err := encodeOptions(q)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO quiz_questions (id, position, question, options, correct_index)
			 VALUES (:id, :position, :question, :options, :correct_index)`,
			map[string]any{
				"id": q.ID, "position": i, "question": q.Question,
				"options": string(raw), "correct_index": q.CorrectIndex,
			}); err != nil {
			return errors.Wrapf(err, "insert quiz %s", q.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit quiz")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Package store は会話（スレッド・メッセージ）と通知の永続化を担う。
// SQLite上のスキーマは埋め込みマイグレーションで管理し、
// クエリはsqlc形式の db パッケージ経由で実行する。
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/store/db"
	"github.com/nao1215/courier/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout は日時をTEXT列に保存する形式。固定長なので文字列順と時刻順が一致する。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store は会話と通知のデータアクセスを提供する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// queries はsqlc形式のクエリ実行オブジェクト。
	queries *db.Queries
}

// Open はSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteの書き込みは1接続に直列化する。:memory: の場合は接続ごとに別DBになるため必須。
	sqlDB.SetMaxOpenConns(1)
	s := New(sqlDB)
	if err := s.Migrate(ctx, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New は既存のデータベース接続からStoreを生成する。スキーマは作成しない。
func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB, queries: db.New(sqlDB)}
}

// Migrate は未適用のマイグレーションを適用する。
func (s *Store) Migrate(ctx context.Context, logger zerolog.Logger) error {
	if err := migration.Run(ctx, s.db, migrationsFS, "migrations", logger); err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx はトランザクション内でfnを実行する。fnがエラーを返した場合はロールバックする。
func (s *Store) withTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	if err := fn(s.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// notFound はsql.ErrNoRowsをErrNotFoundに変換する。
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %sが見つかりません: %s", model.ErrNotFound, what, id)
	}
	return fmt.Errorf("%sの取得に失敗: %w", what, err)
}

package post

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	postdb "github.com/nkmr-lab/microblog/internal/post/db"
	"github.com/nkmr-lab/microblog/pkg/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrPostNotFound は指定されたIDの投稿が存在しないことを表す。
var ErrPostNotFound = errors.New("post not found")

// Store は投稿の永続化を担うリポジトリ。
// ID・作成日時・所有者は作成後に変更されない。
type Store struct {
	// db はトランザクションの開始に使用するデータベースハンドル。
	db *sql.DB
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *postdb.Queries
}

// NewStore は新しい投稿リポジトリを生成する。
func NewStore(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB, queries: postdb.New(sqlDB)}
}

// OpenDB はSQLiteデータベースを開き、マイグレーションを適用する。
func OpenDB(path string, log *zap.Logger) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationFS, "migrations", log); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}
	return sqlDB, nil
}

// Create は新しい投稿を作成する。
// IDと作成・更新日時はここで生成し、作成直後の両日時は等しい。
// タイトル・本文の検証は呼び出し側（RPCアダプタ）の責務であり、ここでは再検証しない。
func (s *Store) Create(ctx context.Context, userID, title, content string) (postdb.Post, error) {
	now := time.Now().UTC()
	p := postdb.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.queries.CreatePost(ctx, postdb.CreatePostParams{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}); err != nil {
		return postdb.Post{}, fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	return p, nil
}

// Get は投稿を1件取得する。存在しない場合はErrPostNotFoundを返す。
func (s *Store) Get(ctx context.Context, postID string) (postdb.Post, error) {
	p, err := s.queries.GetPostByID(ctx, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return postdb.Post{}, ErrPostNotFound
	}
	if err != nil {
		return postdb.Post{}, fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	return p, nil
}

// List は所有者の投稿を作成順でページ指定取得し、所有者の全投稿数とともに返す。
//
// ストアは任意オフセットへのシークを効率的に行えないため、
// 先頭からpage*pageSize件を1回のスキャンで取得し、末尾のpageSize件を
// 切り出す方式をとる。コストはページの深さに比例して増加するが、
// これは既知の制約として許容している。
// 全投稿数は取得とは独立したカウントであり、並行書き込みの下では
// 返却ページと厳密に整合しないことがある（意図した緩い整合性）。
func (s *Store) List(ctx context.Context, userID string, page, pageSize int) ([]postdb.Post, int64, error) {
	// ページ指定の検証はRPCアダプタの責務だが、0以下の値では除算できないためここで打ち切る
	if page < 1 || pageSize < 1 {
		return []postdb.Post{}, 0, nil
	}

	total, err := s.queries.CountPostsByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("投稿数のカウントに失敗: %w", err)
	}

	// 最終ページより先を要求された場合は取得せずに空ページを返す。totalは正確な値のまま。
	// 巨大なページ番号はここで打ち切られるため、以降の乗算は総数の範囲に収まる
	if int64(page)-1 > total/int64(pageSize) {
		return []postdb.Post{}, total, nil
	}

	fetched, err := s.queries.ListPostsByUser(ctx, postdb.ListPostsByUserParams{
		UserID: userID,
		Limit:  int64(page) * int64(pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}

	start := (int64(page) - 1) * int64(pageSize)
	if int64(len(fetched)) <= start {
		return []postdb.Post{}, total, nil
	}
	return fetched[start:], total, nil
}

// Update は投稿のタイトル・本文を更新し、更新日時を刷新する。
// 空文字のフィールドは変更しない。所有者と作成日時は変更されない。
// 取得と更新は同一トランザクションで実行し、存在しない場合はErrPostNotFoundを返す。
func (s *Store) Update(ctx context.Context, postID, title, content string) (postdb.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return postdb.Post{}, fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)
	p, err := qtx.GetPostByID(ctx, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return postdb.Post{}, ErrPostNotFound
	}
	if err != nil {
		return postdb.Post{}, fmt.Errorf("投稿の取得に失敗: %w", err)
	}

	if title != "" {
		p.Title = title
	}
	if content != "" {
		p.Content = content
	}
	p.UpdatedAt = time.Now().UTC()

	affected, err := qtx.UpdatePost(ctx, postdb.UpdatePostParams{
		Title:     p.Title,
		Content:   p.Content,
		UpdatedAt: p.UpdatedAt,
		ID:        p.ID,
	})
	if err != nil {
		return postdb.Post{}, fmt.Errorf("投稿の更新に失敗: %w", err)
	}
	// 取得と更新の間に行が消えていた場合は成功として報告しない
	if affected == 0 {
		return postdb.Post{}, ErrPostNotFound
	}

	if err := tx.Commit(); err != nil {
		return postdb.Post{}, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return p, nil
}

// Delete は投稿を所有者確認付きで削除する。
// 投稿が存在しない場合と、存在しても所有者が一致しない場合のどちらもfalseを返し、
// 呼び出し側からは両者を区別できない（他ユーザーへの存在情報の漏洩を防ぐ）。
func (s *Store) Delete(ctx context.Context, postID, userID string) (bool, error) {
	affected, err := s.queries.DeletePostByIDAndUser(ctx, postdb.DeletePostByIDAndUserParams{
		ID:     postID,
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("投稿の削除に失敗: %w", err)
	}
	return affected > 0, nil
}

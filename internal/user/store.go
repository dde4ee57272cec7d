package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User はユーザーアカウントのレコード。
type User struct {
	// ID はユーザーの一意識別子。gatewayはこれを投稿の所有者識別子として使用する。
	ID string
	// Login はログイン名（一意）。
	Login string
	// Email はメールアドレス（一意）。
	Email string
	// FullName は表示名。空でもよい。
	FullName string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// CreatedAt は登録日時。
	CreatedAt time.Time
}

var (
	// ErrUserNotFound は指定されたユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser はログイン名またはメールアドレスが既に使われていることを表す。
	ErrDuplicateUser = errors.New("login or email already taken")
)

// Store はユーザーの永続化を担うリポジトリのインターフェース。
// ハンドラのテストではインメモリ実装に差し替える。
type Store interface {
	// CreateUser はユーザーを登録する。ログイン名・メールの重複はErrDuplicateUserを返す。
	CreateUser(ctx context.Context, u User) error
	// GetUserByLogin はログイン名でユーザーを1件取得する。
	GetUserByLogin(ctx context.Context, login string) (User, error)
	// GetUserByID はIDでユーザーを1件取得する。
	GetUserByID(ctx context.Context, id string) (User, error)
	// UpdateUser はユーザーの可変フィールド（email・full_name・password_hash）を更新する。
	UpdateUser(ctx context.Context, u User) error
}

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// usersSchema はusersテーブルのスキーマ。起動時に冪等に適用する。
const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    login         TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    full_name     TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore はPostgreSQLを使うStoreの実装。
type PostgresStore struct {
	// pool はPostgreSQLへの接続プール。
	pool *pgxpool.Pool
}

// Storeインターフェースの実装を保証する。
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore はPostgreSQLへ接続し、スキーマを適用したリポジトリを返す。
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQLへの疎通確認に失敗: %w", err)
	}
	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("usersテーブルの作成に失敗: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close は接続プールを解放する。
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CreateUser はユーザーを登録する。
func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, login, email, full_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Login, u.Email, u.FullName, u.PasswordHash, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// GetUserByLogin はログイン名でユーザーを1件取得する。
func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (User, error) {
	return s.getUser(ctx,
		`SELECT id, login, email, full_name, password_hash, created_at
		 FROM users WHERE login = $1`, login)
}

// GetUserByID はIDでユーザーを1件取得する。
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx,
		`SELECT id, login, email, full_name, password_hash, created_at
		 FROM users WHERE id = $1`, id)
}

// getUser は単一行のSELECTを実行してUserに復元する。
func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Login, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// UpdateUser はユーザーの可変フィールドを更新する。
func (s *PostgresStore) UpdateUser(ctx context.Context, u User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email = $1, full_name = $2, password_hash = $3 WHERE id = $4`,
		u.Email, u.FullName, u.PasswordHash, u.ID,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("ユーザーの更新に失敗: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

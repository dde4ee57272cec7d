package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nkmr-lab/microblog/pkg/config"
)

// fakeStore はテスト用のインメモリStore実装。
type fakeStore struct {
	mu    sync.Mutex
	users map[string]User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]User)}
}

func (s *fakeStore) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Login == u.Login || existing.Email == u.Email {
			return ErrDuplicateUser
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *fakeStore) GetUserByLogin(_ context.Context, login string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Login == login {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) UpdateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicateUser
		}
	}
	stored.Email = u.Email
	stored.FullName = u.FullName
	stored.PasswordHash = u.PasswordHash
	s.users[u.ID] = stored
	return nil
}

// newTestServer はテスト用のuserサービスルーターを構築する。
func newTestServer(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	cfg := config.User{
		Port:        "0",
		JWTSecret:   "test-secret",
		TokenTTLMin: 30,
	}
	return New(store, cfg, zap.NewNop()).Router(), store
}

// registerUser は登録エンドポイント経由でユーザーを作成するヘルパー関数。
func registerUser(t *testing.T, router *gin.Engine, login, email, password string) userProfile {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"login":    login,
		"email":    email,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("登録に失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	var profile userProfile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("登録レスポンスの解釈に失敗: %v", err)
	}
	return profile
}

// issueToken はトークンエンドポイント経由でJWTを取得するヘルパー関数。
func issueToken(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("トークンの発行に失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("トークンレスポンスの解釈に失敗: %v", err)
	}
	return resp.AccessToken
}

// TestRegister はユーザー登録のテスト。
func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("有効なリクエストで201とプロフィールが返ること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		profile := registerUser(t, router, "alice", "alice@example.com", "password123")
		if profile.ID == "" {
			t.Error("IDが設定されていない")
		}
		if profile.Login != "alice" || profile.Email != "alice@example.com" {
			t.Errorf("プロフィールが一致しません: %+v", profile)
		}
	})

	t.Run("レスポンスにパスワード関連のフィールドが含まれないこと", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		body, _ := json.Marshal(map[string]string{
			"login": "alice", "email": "alice@example.com", "password": "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		raw, _ := io.ReadAll(w.Body)
		if strings.Contains(string(raw), "password") {
			t.Errorf("レスポンスにパスワードが含まれています: %s", raw)
		}
	})

	t.Run("重複したログイン名は400になること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		registerUser(t, router, "alice", "alice@example.com", "password123")

		body, _ := json.Marshal(map[string]string{
			"login": "alice", "email": "alice2@example.com", "password": "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("ステータス = %d, want 400", w.Code)
		}
	})

	t.Run("8文字未満のパスワードは400になること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		body, _ := json.Marshal(map[string]string{
			"login": "alice", "email": "alice@example.com", "password": "short",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("ステータス = %d, want 400", w.Code)
		}
	})
}

// TestToken はトークン発行のテスト。
func TestToken(t *testing.T) {
	t.Parallel()

	t.Run("正しい資格情報でトークンが発行され/meで使えること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		profile := registerUser(t, router, "alice", "alice@example.com", "password123")
		token := issueToken(t, router, "alice", "password123")

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("/meのステータス = %d, want 200 (body=%s)", w.Code, w.Body.String())
		}

		var me userProfile
		if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
			t.Fatalf("レスポンスの解釈に失敗: %v", err)
		}
		if me.ID != profile.ID {
			t.Errorf("ID = %q, want %q", me.ID, profile.ID)
		}
	})

	t.Run("誤ったパスワードは401とWWW-Authenticateを返すこと", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		registerUser(t, router, "alice", "alice@example.com", "password123")

		form := url.Values{"username": {"alice"}, "password": {"wrong-password"}}
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータス = %d, want 401", w.Code)
		}
		if w.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Errorf("WWW-Authenticate = %q, want Bearer", w.Header().Get("WWW-Authenticate"))
		}
	})

	t.Run("存在しないユーザーも同じ401になること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		form := url.Values{"username": {"nobody"}, "password": {"password123"}}
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータス = %d, want 401", w.Code)
		}
	})
}

// TestMe はプロフィール取得・更新のテスト。
func TestMe(t *testing.T) {
	t.Parallel()

	t.Run("トークンなしの/meは401になること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータス = %d, want 401", w.Code)
		}
	})

	t.Run("不正なトークンの/meは401になること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータス = %d, want 401", w.Code)
		}
	})

	t.Run("full_nameのみの更新で他のフィールドが保持されること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		registerUser(t, router, "alice", "alice@example.com", "password123")
		token := issueToken(t, router, "alice", "password123")

		req := httptest.NewRequest(http.MethodPut, "/me", strings.NewReader(`{"full_name":"Alice Example"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータス = %d, want 200 (body=%s)", w.Code, w.Body.String())
		}

		var updated userProfile
		if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
			t.Fatalf("レスポンスの解釈に失敗: %v", err)
		}
		if updated.FullName != "Alice Example" {
			t.Errorf("FullName = %q, want %q", updated.FullName, "Alice Example")
		}
		if updated.Email != "alice@example.com" {
			t.Errorf("Email = %q, want 変更されない", updated.Email)
		}
	})

	t.Run("パスワード変更後は新しいパスワードでログインできること", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestServer(t)
		registerUser(t, router, "alice", "alice@example.com", "password123")
		token := issueToken(t, router, "alice", "password123")

		req := httptest.NewRequest(http.MethodPut, "/me", strings.NewReader(`{"password":"new-password456"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータス = %d, want 200 (body=%s)", w.Code, w.Body.String())
		}

		// 新しいパスワードでトークンが発行できる
		issueToken(t, router, "alice", "new-password456")

		// 旧パスワードは拒否される
		form := url.Values{"username": {"alice"}, "password": {"password123"}}
		req = httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("旧パスワードのステータス = %d, want 401", w.Code)
		}
	})

	t.Run("トークン発行後にユーザーが消えた場合の/meは401になること", func(t *testing.T) {
		t.Parallel()

		router, store := newTestServer(t)
		profile := registerUser(t, router, "alice", "alice@example.com", "password123")
		token := issueToken(t, router, "alice", "password123")

		store.mu.Lock()
		delete(store.users, profile.ID)
		store.mu.Unlock()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータス = %d, want 401", w.Code)
		}
	})
}

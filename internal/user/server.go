package user

import (
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nkmr-lab/microblog/pkg/config"
	"github.com/nkmr-lab/microblog/pkg/middleware"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// Server はuserサービス本体。
type Server struct {
	// store はユーザーリポジトリ。
	store Store
	// cfg はuserサービスの設定。
	cfg config.User
	// log は構造化ログの出力先。
	log *zap.Logger
}

// New は新しいuserサービスを生成する。
func New(store Store, cfg config.User, log *zap.Logger) *Server {
	return &Server{store: store, cfg: cfg, log: log}
}

// Router はuserサービスのHTTPルーターを構築する。
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(s.log))
	router.Use(middleware.RequestID())
	router.Use(ginzap.Ginzap(s.log, time.RFC3339, true))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "user"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/register", s.handleRegister())
	router.POST("/token", s.handleToken())

	me := router.Group("/me", middleware.JWTAuth(s.cfg.JWTSecret))
	{
		me.GET("", s.handleGetMe())
		me.PUT("", s.handleUpdateMe())
	}

	return router
}

// userProfile はAPIが返すユーザー情報。パスワードハッシュは含めない。
type userProfile struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

// toProfile はユーザーレコードをAPI表現に変換する。
func toProfile(u User) userProfile {
	return userProfile{
		ID:        u.ID,
		Login:     u.Login,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// registerRequest はユーザー登録のリクエストボディ。
type registerRequest struct {
	Login    string `json:"login" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

// handleRegister はユーザーを登録する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "login・email・passwordは必須です"})
			return
		}
		if len([]rune(req.Password)) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "passwordは8文字以上で指定してください"})
			return
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			s.log.Error("パスワードのハッシュ化に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの登録に失敗しました"})
			return
		}

		u := User{
			ID:           uuid.New().String(),
			Login:        req.Login,
			Email:        req.Email,
			FullName:     req.FullName,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.store.CreateUser(c.Request.Context(), u); err != nil {
			if errors.Is(err, ErrDuplicateUser) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "このログイン名またはメールアドレスは既に使われています"})
				return
			}
			s.log.Error("ユーザーの登録に失敗", zap.String("login", req.Login), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの登録に失敗しました"})
			return
		}

		s.log.Info("ユーザーを登録", zap.String("user_id", u.ID), zap.String("login", u.Login))
		c.JSON(http.StatusCreated, toProfile(u))
	}
}

// tokenResponse はトークン発行のレスポンスボディ。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleToken はログイン名とパスワードを検証してJWTを発行する。
// リクエストはフォームエンコードのusername / passwordフィールドで受け取る。
func (s *Server) handleToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")
		if username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "usernameとpasswordは必須です"})
			return
		}

		u, err := s.store.GetUserByLogin(c.Request.Context(), username)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			s.log.Error("ユーザーの取得に失敗", zap.String("login", username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "トークンの発行に失敗しました"})
			return
		}
		// 存在しないユーザーとパスワード不一致は同じ応答にする
		if err != nil || !checkPassword(u.PasswordHash, password) {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "ユーザー名またはパスワードが正しくありません"})
			return
		}

		token, err := middleware.GenerateJWT(s.cfg.JWTSecret, u.ID, u.Email, s.cfg.TokenTTL())
		if err != nil {
			s.log.Error("JWTの発行に失敗", zap.String("user_id", u.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "トークンの発行に失敗しました"})
			return
		}

		s.log.Info("トークンを発行", zap.String("user_id", u.ID))
		c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// handleGetMe は認証済みユーザー自身のプロフィールを返す。
// gatewayはこのエンドポイントをトークン検証として利用し、idを所有者識別子に使う。
func (s *Server) handleGetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.store.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
		if errors.Is(err, ErrUserNotFound) {
			// トークンは有効でもアカウントが既に消えている場合は認証失敗として扱う
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			s.log.Error("ユーザーの取得に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toProfile(u))
	}
}

// updateMeRequest はプロフィール更新のリクエストボディ。省略したフィールドは変更しない。
type updateMeRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// handleUpdateMe は認証済みユーザー自身のプロフィールを更新する。
func (s *Server) handleUpdateMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "リクエストボディの形式が不正です"})
			return
		}

		u, err := s.store.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			s.log.Error("ユーザーの取得に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの更新に失敗しました"})
			return
		}

		if req.Email != "" {
			u.Email = req.Email
		}
		if req.FullName != "" {
			u.FullName = req.FullName
		}
		if req.Password != "" {
			if len([]rune(req.Password)) < minPasswordLength {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "passwordは8文字以上で指定してください"})
				return
			}
			hash, err := hashPassword(req.Password)
			if err != nil {
				s.log.Error("パスワードのハッシュ化に失敗", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの更新に失敗しました"})
				return
			}
			u.PasswordHash = hash
		}

		if err := s.store.UpdateUser(c.Request.Context(), u); err != nil {
			if errors.Is(err, ErrDuplicateUser) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "このメールアドレスは既に使われています"})
				return
			}
			s.log.Error("ユーザーの更新に失敗", zap.String("user_id", u.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "ユーザーの更新に失敗しました"})
			return
		}

		s.log.Info("プロフィールを更新", zap.String("user_id", u.ID))
		c.JSON(http.StatusOK, toProfile(u))
	}
}

package gateway

import (
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nkmr-lab/microblog/pkg/config"
	"github.com/nkmr-lab/microblog/pkg/middleware"
	"github.com/nkmr-lab/microblog/pkg/postrpc"
)

// Server はgatewayサービス本体。
// 下流サービスへのクライアントを保持し、HTTPルーターを構築する。
type Server struct {
	// cfg はgatewayの設定。
	cfg config.Gateway
	// posts はpostサービスへの型付きRPCクライアント。
	posts *postrpc.Client
	// identity はuserサービスへのトークン検証クライアント。
	identity *identityClient
	// proxy はユーザー管理系エンドポイントの転送に使うHTTPクライアント。
	proxy *http.Client
	// log は構造化ログの出力先。
	log *zap.Logger
}

// New は新しいgatewayサービスを生成する。
func New(cfg config.Gateway, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		posts:    postrpc.NewClient(cfg.PostServiceAddr, cfg.RPCTimeout()),
		identity: newIdentityClient(cfg.UserServiceURL, cfg.IdentityTimeout()),
		proxy:    &http.Client{Timeout: cfg.IdentityTimeout()},
		log:      log,
	}
}

// Router はgatewayのHTTPルーターを構築する。
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(s.log))
	router.Use(middleware.RequestID())
	router.Use(ginzap.Ginzap(s.log, time.RFC3339, true))
	router.Use(middleware.Metrics())
	if s.cfg.RateLimitRPS > 0 {
		router.Use(middleware.RateLimit(rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst))
	}
	router.Use(middleware.CORS(s.cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/posts", s.handleCreatePost())
		v1.GET("/posts", s.handleListPosts())
		v1.GET("/posts/:id", s.handleGetPost())
		v1.PUT("/posts/:id", s.handleUpdatePost())
		v1.DELETE("/posts/:id", s.handleDeletePost())

		// ユーザー管理系はuserサービスへそのまま転送する
		v1.POST("/register", s.proxyToUser("/register"))
		v1.POST("/token", s.proxyToUser("/token"))
		v1.GET("/me", s.proxyToUser("/me"))
		v1.PUT("/me", s.proxyToUser("/me"))
	}

	return router
}

// authenticate はAuthorizationヘッダーのトークンをuserサービスで検証する。
// 失敗時はレスポンスを書き込んでfalseを返す。
func (s *Server) authenticate(c *gin.Context) (*AuthenticatedUser, bool) {
	user, err := s.identity.Validate(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
	if err == nil {
		return user, true
	}

	authErr, ok := err.(*AuthError)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "トークンの検証に失敗しました"})
		return nil, false
	}

	switch authErr.Kind {
	case KindInvalidToken:
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": authErr.Detail})
	case KindServiceUnavailable:
		s.log.Warn("ユーザーサービスに到達できません", zap.String("detail", authErr.Detail))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": authErr.Detail})
	default:
		status := http.StatusInternalServerError
		if authErr.Status >= http.StatusInternalServerError {
			status = authErr.Status
		}
		s.log.Error("トークン検証で予期しない応答",
			zap.Int("upstream_status", authErr.Status),
			zap.String("detail", authErr.Detail),
		)
		c.AbortWithStatusJSON(status, gin.H{"detail": authErr.Detail})
	}
	return nil, false
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// Bearerスキーム以外や空のヘッダーは空文字を返す。
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

package post

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nkmr-lab/microblog/pkg/middleware"
)

// NewOpsRouter はpostサービスの運用系HTTPルーターを生成する。
// ヘルスチェックとメトリクスのみを公開し、業務APIは含まない。
func NewOpsRouter(log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "post"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

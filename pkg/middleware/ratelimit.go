package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit はプロセス全体の令牌バケットで流量を制限するGinミドルウェアを返す。
// 上限を超えたリクエストには429を返す。
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"detail": "リクエストが多すぎます。しばらく待ってから再試行してください",
		})
	}
}

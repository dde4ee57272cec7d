package gateway

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// proxyToUser はリクエストをuserサービスの指定パスへ転送するハンドラを返す。
// ステータス・ボディ・Content-Typeはuserサービスの応答をそのまま返す。
func (s *Server) proxyToUser(target string) gin.HandlerFunc {
	base := strings.TrimRight(s.cfg.UserServiceURL, "/")
	return func(c *gin.Context) {
		url := base + target
		if q := c.Request.URL.RawQuery; q != "" {
			url += "?" + q
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "転送リクエストの作成に失敗しました"})
			return
		}
		for _, h := range []string{"Authorization", "Content-Type", "Accept"} {
			if v := c.GetHeader(h); v != "" {
				req.Header.Set(h, v)
			}
		}

		resp, err := s.proxy.Do(req)
		if err != nil {
			s.log.Warn("ユーザーサービスへの転送に失敗", zap.String("url", url), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "ユーザーサービスに接続できません"})
			return
		}
		defer resp.Body.Close()

		c.Status(resp.StatusCode)
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			c.Header("Content-Type", ct)
		}
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			s.log.Warn("転送レスポンスの書き込みに失敗", zap.String("url", url), zap.Error(err))
		}
	}
}

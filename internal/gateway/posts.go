package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nkmr-lab/microblog/pkg/postrpc"
	"github.com/nkmr-lab/microblog/pkg/rpc"
)

// タイトル・ページサイズの上限。postサービス側の検証と同期すること。
const (
	maxTitleLength  = 100
	maxPageSize     = 100
	defaultPageSize = 10
)

// createPostRequest は投稿作成のリクエストボディ。
type createPostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// updatePostRequest は投稿更新のリクエストボディ。どちらのフィールドも省略可能。
type updatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// listPostsResponse は投稿一覧のレスポンスボディ。
type listPostsResponse struct {
	Posts    []postrpc.Post `json:"posts"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// statusFromRPC はRPCステータスコードをHTTPステータスに変換する。
func statusFromRPC(code rpc.Code) int {
	switch code {
	case rpc.CodeInvalidArgument:
		return http.StatusBadRequest
	case rpc.CodeNotFound:
		return http.StatusNotFound
	case rpc.CodePermissionDenied:
		return http.StatusForbidden
	case rpc.CodeUnavailable:
		// 下流サービスへの接続失敗・タイムアウトは呼び出し元に503として伝える
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortRPCError はRPC呼び出しの失敗をHTTPエラーレスポンスに変換する。
func (s *Server) abortRPCError(c *gin.Context, err error) {
	code := rpc.CodeOf(err)
	status := statusFromRPC(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("postサービスの呼び出しに失敗",
			zap.String("path", c.FullPath()),
			zap.String("code", code.String()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": rpc.DetailOf(err)})
}

// handleCreatePost は投稿を作成する。
// 所有者は検証済みトークンの身元から決定し、ボディでの指定は受け付けない。
func (s *Server) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.authenticate(c)
		if !ok {
			return
		}

		var req createPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "titleとcontentは必須です"})
			return
		}
		if len([]rune(req.Title)) > maxTitleLength {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "titleは100文字以内で指定してください"})
			return
		}

		post, err := s.posts.CreatePost(c.Request.Context(), &postrpc.CreatePostRequest{
			UserID:  user.ID,
			Title:   req.Title,
			Content: req.Content,
		})
		if err != nil {
			s.abortRPCError(c, err)
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// handleGetPost は投稿を1件取得する。認証は不要。
func (s *Server) handleGetPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.posts.GetPost(c.Request.Context(), &postrpc.GetPostRequest{
			PostID: c.Param("id"),
		})
		if err != nil {
			s.abortRPCError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// handleListPosts は所有者の投稿一覧をページ指定で取得する。認証は不要。
// owner_idクエリパラメータは必須で、所有者なしの全件一覧は提供しない。
func (s *Server) handleListPosts() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.Query("owner_id")
		if ownerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "owner_idは必須です"})
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "pageは1以上の整数で指定してください"})
			return
		}
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
		if err != nil || pageSize < 1 || pageSize > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "page_sizeは1〜100の整数で指定してください"})
			return
		}

		resp, err := s.posts.ListPosts(c.Request.Context(), &postrpc.ListPostsRequest{
			UserID:   ownerID,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			s.abortRPCError(c, err)
			return
		}
		c.JSON(http.StatusOK, listPostsResponse{
			Posts:    resp.Posts,
			Total:    resp.Total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

// handleUpdatePost は投稿のタイトル・本文を更新する。
// 省略されたフィールドは変更されない。少なくとも一方の指定が必要。
func (s *Server) handleUpdatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.authenticate(c); !ok {
			return
		}

		var req updatePostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "リクエストボディの形式が不正です"})
			return
		}
		if req.Title == "" && req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "titleまたはcontentのどちらかを指定してください"})
			return
		}
		if len([]rune(req.Title)) > maxTitleLength {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "titleは100文字以内で指定してください"})
			return
		}

		post, err := s.posts.UpdatePost(c.Request.Context(), &postrpc.UpdatePostRequest{
			PostID:  c.Param("id"),
			Title:   req.Title,
			Content: req.Content,
		})
		if err != nil {
			s.abortRPCError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// handleDeletePost は投稿を削除する。
// 呼び出し元はトークンの身元で特定し、所有者以外の投稿は削除できない。
func (s *Server) handleDeletePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.authenticate(c)
		if !ok {
			return
		}

		resp, err := s.posts.DeletePost(c.Request.Context(), &postrpc.DeletePostRequest{
			PostID: c.Param("id"),
			UserID: user.ID,
		})
		if err != nil {
			s.abortRPCError(c, err)
			return
		}
		if !resp.Success {
			c.JSON(http.StatusNotFound, gin.H{"detail": "投稿が見つかりません"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

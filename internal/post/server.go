package post

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	postdb "github.com/nkmr-lab/microblog/internal/post/db"
	"github.com/nkmr-lab/microblog/pkg/postrpc"
	"github.com/nkmr-lab/microblog/pkg/rpc"
)

// タイトル・ページサイズの上限。gateway側の入力検証と同期すること。
const (
	maxTitleLength = 100
	maxPageSize    = 100
)

// Server は投稿操作をRPCインターフェースとして公開するアダプタ。
// ストアの結果をRPCステータスコードに変換する責務を持つ。
type Server struct {
	// rpc は下位のRPCサーバー。
	rpc *rpc.Server
	// store は投稿リポジトリ。
	store *Store
	// log は構造化ログの出力先。
	log *zap.Logger
}

// NewServer は新しいpostサービスのRPCアダプタを生成する。
func NewServer(store *Store, log *zap.Logger) *Server {
	s := &Server{
		rpc:   rpc.NewServer(log),
		store: store,
		log:   log,
	}
	s.rpc.Register(postrpc.MethodCreatePost, s.handleCreatePost)
	s.rpc.Register(postrpc.MethodGetPost, s.handleGetPost)
	s.rpc.Register(postrpc.MethodListPosts, s.handleListPosts)
	s.rpc.Register(postrpc.MethodUpdatePost, s.handleUpdatePost)
	s.rpc.Register(postrpc.MethodDeletePost, s.handleDeletePost)
	return s
}

// Serve はリスナー上でRPCリクエストの処理を開始する。
// ctxがキャンセルされると終了する。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	return s.rpc.Serve(ctx, lis)
}

// toWirePost はストアの投稿レコードをRPC境界の表現に変換する。
func toWirePost(p postdb.Post) postrpc.Post {
	return postrpc.Post{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// handleCreatePost は投稿作成RPCを処理する。
func (s *Server) handleCreatePost(ctx context.Context, payload json.RawMessage) (any, error) {
	var req postrpc.CreatePostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "リクエストの形式が不正です")
	}

	s.log.Info("CreatePost", zap.String("user_id", req.UserID))

	if req.UserID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "user_idは必須です")
	}
	if req.Title == "" || len([]rune(req.Title)) > maxTitleLength {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "titleは1〜%d文字で指定してください", maxTitleLength)
	}
	if req.Content == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "contentは必須です")
	}

	p, err := s.store.Create(ctx, req.UserID, req.Title, req.Content)
	if err != nil {
		s.log.Error("投稿の作成に失敗", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, rpc.Errorf(rpc.CodeInternal, "投稿の作成に失敗しました")
	}
	return toWirePost(p), nil
}

// handleGetPost は投稿取得RPCを処理する。
func (s *Server) handleGetPost(ctx context.Context, payload json.RawMessage) (any, error) {
	var req postrpc.GetPostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "リクエストの形式が不正です")
	}

	s.log.Info("GetPost", zap.String("post_id", req.PostID))

	if req.PostID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "post_idは必須です")
	}

	p, err := s.store.Get(ctx, req.PostID)
	if errors.Is(err, ErrPostNotFound) {
		return nil, rpc.Errorf(rpc.CodeNotFound, "投稿が見つかりません: %s", req.PostID)
	}
	if err != nil {
		s.log.Error("投稿の取得に失敗", zap.String("post_id", req.PostID), zap.Error(err))
		return nil, rpc.Errorf(rpc.CodeInternal, "投稿の取得に失敗しました")
	}
	return toWirePost(p), nil
}

// handleListPosts は投稿一覧RPCを処理する。
// 所有者によるフィルタは必須であり、所有者なしの一覧はこの層では提供しない。
func (s *Server) handleListPosts(ctx context.Context, payload json.RawMessage) (any, error) {
	var req postrpc.ListPostsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "リクエストの形式が不正です")
	}

	s.log.Info("ListPosts",
		zap.String("user_id", req.UserID),
		zap.Int("page", req.Page),
		zap.Int("page_size", req.PageSize),
	)

	if req.UserID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "user_idは必須です")
	}
	if req.Page < 1 {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "pageは1以上で指定してください")
	}
	if req.PageSize < 1 || req.PageSize > maxPageSize {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "page_sizeは1〜%dで指定してください", maxPageSize)
	}

	posts, total, err := s.store.List(ctx, req.UserID, req.Page, req.PageSize)
	if err != nil {
		s.log.Error("投稿一覧の取得に失敗", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, rpc.Errorf(rpc.CodeInternal, "投稿一覧の取得に失敗しました")
	}

	resp := postrpc.ListPostsResponse{
		Posts: make([]postrpc.Post, 0, len(posts)),
		Total: total,
	}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toWirePost(p))
	}
	return resp, nil
}

// handleUpdatePost は投稿更新RPCを処理する。
func (s *Server) handleUpdatePost(ctx context.Context, payload json.RawMessage) (any, error) {
	var req postrpc.UpdatePostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "リクエストの形式が不正です")
	}

	s.log.Info("UpdatePost", zap.String("post_id", req.PostID))

	if req.PostID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "post_idは必須です")
	}
	if req.Title == "" && req.Content == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "更新するフィールドがありません")
	}
	if req.Title != "" && len([]rune(req.Title)) > maxTitleLength {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "titleは1〜%d文字で指定してください", maxTitleLength)
	}

	p, err := s.store.Update(ctx, req.PostID, req.Title, req.Content)
	if errors.Is(err, ErrPostNotFound) {
		return nil, rpc.Errorf(rpc.CodeNotFound, "投稿が見つかりません: %s", req.PostID)
	}
	if err != nil {
		s.log.Error("投稿の更新に失敗", zap.String("post_id", req.PostID), zap.Error(err))
		return nil, rpc.Errorf(rpc.CodeInternal, "投稿の更新に失敗しました")
	}
	return toWirePost(p), nil
}

// handleDeletePost は投稿削除RPCを処理する。
// 「存在しない」と「所有者が一致しない」はどちらもNOT_FOUNDとして返し、
// 呼び出し側からは区別できない。
func (s *Server) handleDeletePost(ctx context.Context, payload json.RawMessage) (any, error) {
	var req postrpc.DeletePostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "リクエストの形式が不正です")
	}

	s.log.Info("DeletePost",
		zap.String("post_id", req.PostID),
		zap.String("user_id", req.UserID),
	)

	if req.PostID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "post_idは必須です")
	}
	if req.UserID == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "user_idは必須です")
	}

	deleted, err := s.store.Delete(ctx, req.PostID, req.UserID)
	if err != nil {
		s.log.Error("投稿の削除に失敗", zap.String("post_id", req.PostID), zap.Error(err))
		return nil, rpc.Errorf(rpc.CodeInternal, "投稿の削除に失敗しました")
	}
	if !deleted {
		return nil, rpc.Errorf(rpc.CodeNotFound, "投稿が見つからないか、削除する権限がありません: %s", req.PostID)
	}
	return postrpc.DeletePostResponse{Success: true}, nil
}

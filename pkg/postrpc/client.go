package postrpc

import (
	"context"
	"time"

	"github.com/nkmr-lab/microblog/pkg/rpc"
)

// Client はpostサービスへの型付きRPCクライアント。
// 呼び出しごとに接続を確立・解放する（pkg/rpcの契約に従う）。
type Client struct {
	// rpc は下位のRPCクライアント。
	rpc *rpc.Client
}

// NewClient は新しいpostサービスクライアントを生成する。
// addrにはpostサービスのRPCアドレス（例: "post-service:9090"）を指定する。
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{rpc: rpc.NewClient(addr, timeout)}
}

// CreatePost は投稿を作成する。
func (c *Client) CreatePost(ctx context.Context, req *CreatePostRequest) (*Post, error) {
	var post Post
	if err := c.rpc.Invoke(ctx, MethodCreatePost, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost は投稿を1件取得する。
func (c *Client) GetPost(ctx context.Context, req *GetPostRequest) (*Post, error) {
	var post Post
	if err := c.rpc.Invoke(ctx, MethodGetPost, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts は投稿の一覧をページ指定で取得する。
func (c *Client) ListPosts(ctx context.Context, req *ListPostsRequest) (*ListPostsResponse, error) {
	var resp ListPostsResponse
	if err := c.rpc.Invoke(ctx, MethodListPosts, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePost は投稿のタイトル・本文を更新する。
func (c *Client) UpdatePost(ctx context.Context, req *UpdatePostRequest) (*Post, error) {
	var post Post
	if err := c.rpc.Invoke(ctx, MethodUpdatePost, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost は投稿を所有者確認付きで削除する。
func (c *Client) DeletePost(ctx context.Context, req *DeletePostRequest) (*DeletePostResponse, error) {
	var resp DeletePostResponse
	if err := c.rpc.Invoke(ctx, MethodDeletePost, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Package postrpc はpostサービスのRPCインターフェース定義を提供する。
//
// gatewayサービスとpostサービスの間で共有する固定の通信契約であり、
// メソッド名・リクエスト/レスポンスのスキーマ・型付きクライアントを含む。
package postrpc

// postサービスが公開するRPCメソッド名。
const (
	// MethodCreatePost は投稿を作成する。
	MethodCreatePost = "PostService/CreatePost"
	// MethodGetPost は投稿を1件取得する。
	MethodGetPost = "PostService/GetPost"
	// MethodListPosts は投稿の一覧をページ指定で取得する。
	MethodListPosts = "PostService/ListPosts"
	// MethodUpdatePost は投稿のタイトル・本文を更新する。
	MethodUpdatePost = "PostService/UpdatePost"
	// MethodDeletePost は投稿を所有者確認付きで削除する。
	MethodDeletePost = "PostService/DeletePost"
)

// Post はRPC境界で交換する投稿レコード。
// 日時はRFC3339形式の文字列で表現する。
type Post struct {
	// ID は投稿の一意識別子。
	ID string `json:"id"`
	// UserID は投稿を所有するユーザーのID。
	UserID string `json:"user_id"`
	// Title は投稿のタイトル。
	Title string `json:"title"`
	// Content は投稿の本文。
	Content string `json:"content"`
	// CreatedAt は作成日時（作成後は変化しない）。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は最終更新日時。
	UpdatedAt string `json:"updated_at"`
}

// CreatePostRequest は投稿作成リクエスト。
type CreatePostRequest struct {
	// UserID は投稿の所有者となるユーザーのID。
	UserID string `json:"user_id"`
	// Title は投稿のタイトル（1〜100文字）。
	Title string `json:"title"`
	// Content は投稿の本文（1文字以上）。
	Content string `json:"content"`
}

// GetPostRequest は投稿取得リクエスト。
type GetPostRequest struct {
	// PostID は取得する投稿のID。
	PostID string `json:"post_id"`
}

// ListPostsRequest は投稿一覧リクエスト。所有者によるフィルタは必須。
type ListPostsRequest struct {
	// UserID は一覧対象の所有者のID。
	UserID string `json:"user_id"`
	// Page は1始まりのページ番号。
	Page int `json:"page"`
	// PageSize は1ページあたりの件数（1〜100）。
	PageSize int `json:"page_size"`
}

// ListPostsResponse は投稿一覧レスポンス。
// TotalとPostsは同一時点のスナップショットであることを保証しない。
type ListPostsResponse struct {
	// Posts は要求されたページの投稿（作成順）。
	Posts []Post `json:"posts"`
	// Total は所有者の全投稿数。
	Total int64 `json:"total"`
}

// UpdatePostRequest は投稿更新リクエスト。
// 空文字のフィールドは「変更しない」を意味する。
type UpdatePostRequest struct {
	// PostID は更新する投稿のID。
	PostID string `json:"post_id"`
	// Title は新しいタイトル。空文字の場合は変更しない。
	Title string `json:"title,omitempty"`
	// Content は新しい本文。空文字の場合は変更しない。
	Content string `json:"content,omitempty"`
}

// DeletePostRequest は投稿削除リクエスト。
type DeletePostRequest struct {
	// PostID は削除する投稿のID。
	PostID string `json:"post_id"`
	// UserID は呼び出し元ユーザーのID。投稿の所有者と一致しない場合は削除されない。
	UserID string `json:"user_id"`
}

// DeletePostResponse は投稿削除レスポンス。
type DeletePostResponse struct {
	// Success は削除が実行されたかどうか。
	Success bool `json:"success"`
}

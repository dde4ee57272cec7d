package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AuthenticatedUser はuserサービスが検証した呼び出し元の身元。
// IDは投稿の所有者識別子としてそのまま使用する不透明な文字列。
type AuthenticatedUser struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// AuthErrorKind はトークン検証の失敗分類。
type AuthErrorKind int

const (
	// KindInvalidToken はトークンが欠落・不正・期限切れであることを表す。
	KindInvalidToken AuthErrorKind = iota
	// KindServiceUnavailable はuserサービスに到達できないことを表す。
	KindServiceUnavailable
	// KindUpstreamError はuserサービスが予期しない応答を返したことを表す。
	KindUpstreamError
)

// AuthError はトークン検証の失敗を表す。
// gatewayのハンドラはKindとStatusをHTTPステータスに変換する。
type AuthError struct {
	// Kind は失敗の分類。
	Kind AuthErrorKind
	// Status はuserサービスが返したHTTPステータス（到達できなかった場合は0）。
	Status int
	// Detail は人間が読める詳細メッセージ。
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: kind=%d status=%d: %s", e.Kind, e.Status, e.Detail)
}

// identityClient はuserサービスへトークン検証を委譲するクライアント。
// gateway自身はJWTを検証せず、常にuserサービスの判断に従う。
type identityClient struct {
	// baseURL はuserサービスのベースURL（末尾スラッシュなし）。
	baseURL string
	// httpClient は検証呼び出しに使用するHTTPクライアント。
	httpClient *http.Client
}

// newIdentityClient は新しいトークン検証クライアントを生成する。
func newIdentityClient(baseURL string, timeout time.Duration) *identityClient {
	return &identityClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Validate はトークンをuserサービスの/meエンドポイントで検証し、
// 呼び出し元の身元を返す。失敗時は*AuthErrorを返す。
// リトライは行わず、1回の呼び出しの結果をそのまま分類する。
func (c *identityClient) Validate(ctx context.Context, token string) (*AuthenticatedUser, error) {
	// 空トークンはuserサービスに問い合わせるまでもなく失敗
	if token == "" {
		return nil, &AuthError{Kind: KindInvalidToken, Status: http.StatusUnauthorized, Detail: "認証情報がありません"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, &AuthError{Kind: KindUpstreamError, Status: 0, Detail: "検証リクエストの作成に失敗しました"}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Kind: KindServiceUnavailable, Status: 0, Detail: "ユーザーサービスに接続できません"}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user AuthenticatedUser
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil || user.ID == "" {
			return nil, &AuthError{Kind: KindUpstreamError, Status: resp.StatusCode, Detail: "ユーザーサービスの応答を解釈できません"}
		}
		return &user, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Kind: KindInvalidToken, Status: resp.StatusCode, Detail: upstreamDetail(resp, "トークンが無効です")}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &AuthError{Kind: KindUpstreamError, Status: resp.StatusCode, Detail: "ユーザーサービスでエラーが発生しました"}
	default:
		return nil, &AuthError{Kind: KindUpstreamError, Status: resp.StatusCode, Detail: upstreamDetail(resp, "トークンの検証に失敗しました")}
	}
}

// upstreamDetail はuserサービスのエラー応答からdetailフィールドを取り出す。
// 取り出せない場合はfallbackを返す。
func upstreamDetail(resp *http.Response, fallback string) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Detail == "" {
		return fallback
	}
	return body.Detail
}

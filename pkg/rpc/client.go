package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client は呼び出しごとに接続を確立・解放するRPCクライアント。
// 接続プーリングは行わず、1回のInvokeで接続のオープンからクローズまでを完結する。
type Client struct {
	// addr は接続先サービスのアドレス（例: "post-service:9090"）。
	addr string
	// timeout は接続確立から応答受信までの制限時間。
	timeout time.Duration
}

// NewClient は新しいRPCクライアントを生成する。
// timeoutが0の場合は10秒を使用する。
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{addr: addr, timeout: timeout}
}

// Invoke は単一のRPC呼び出しを実行する。
// reqをペイロードとして送信し、成功時はレスポンスペイロードをreplyにデシリアライズする。
// 接続失敗・タイムアウトはCodeUnavailableの*Errorとして返し、リトライは行わない。
func (c *Client) Invoke(ctx context.Context, method string, req, reply any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Errorf(CodeUnavailable, "サービスへの接続に失敗しました: %v", err)
	}
	defer func() { _ = conn.Close() }()

	// ctxの期限を接続のI/O期限として適用する
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Errorf(CodeInternal, "リクエストのシリアライズに失敗しました: %v", err)
	}

	if err := writeFrame(conn, &request{Method: method, Payload: payload}); err != nil {
		return Errorf(CodeUnavailable, "リクエストの送信に失敗しました: %v", err)
	}

	var resp response
	if err := readFrame(conn, &resp); err != nil {
		return Errorf(CodeUnavailable, "レスポンスの受信に失敗しました: %v", err)
	}

	if resp.Code != CodeOK {
		return &Error{Code: resp.Code, Detail: resp.Detail}
	}

	if reply != nil && len(resp.Payload) > 0 {
		if err := json.Unmarshal(resp.Payload, reply); err != nil {
			return fmt.Errorf("レスポンスのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// HandlerFunc はRPCメソッドの実装。
// リクエストペイロードを受け取り、レスポンスとして返す値またはエラーを返す。
// エラーが*Errorの場合はそのステータスコードが、それ以外はCodeInternalが
// クライアントに返される。
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// connIdleTimeout は接続上で次のリクエストを待つ最大時間。
const connIdleTimeout = 30 * time.Second

// Server はメソッド名でハンドラにディスパッチするRPCサーバー。
type Server struct {
	// log は構造化ログの出力先。
	log *zap.Logger
	// handlers はメソッド名からハンドラへのマップ。
	handlers map[string]HandlerFunc
}

// NewServer は新しいRPCサーバーを生成する。
func NewServer(log *zap.Logger) *Server {
	return &Server{
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register はメソッド名にハンドラを登録する。
// サーバー起動前に呼び出すこと。起動後の登録は想定しない。
func (s *Server) Register(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Serve はリスナー上で接続を受け付け、RPCリクエストを処理する。
// ctxがキャンセルされるとリスナーを閉じて終了する。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			// ctxキャンセルによるリスナークローズは正常終了として扱う
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn は1接続上のリクエストを順次処理する。
// クライアントが接続を閉じるかアイドルタイムアウトに達すると終了する。
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(connIdleTimeout))

		var req request
		if err := readFrame(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				if nerr, ok := err.(net.Error); !ok || !nerr.Timeout() {
					s.log.Warn("リクエストフレームの読み込みに失敗", zap.Error(err))
				}
			}
			return
		}

		resp := s.dispatch(ctx, &req)

		_ = conn.SetWriteDeadline(time.Now().Add(connIdleTimeout))
		if err := writeFrame(conn, resp); err != nil {
			s.log.Warn("レスポンスフレームの書き込みに失敗",
				zap.String("method", req.Method), zap.Error(err))
			return
		}
	}
}

// dispatch はリクエストを対応するハンドラに振り分け、レスポンスを構築する。
// ハンドラのパニックはCodeInternalとして回復する。
func (s *Server) dispatch(ctx context.Context, req *request) (resp *response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("ハンドラがパニックしました",
				zap.String("method", req.Method), zap.Any("panic", r))
			resp = &response{Code: CodeInternal, Detail: "サービス内部でエラーが発生しました"}
		}
	}()

	h, ok := s.handlers[req.Method]
	if !ok {
		s.log.Warn("未登録のメソッドが呼び出されました", zap.String("method", req.Method))
		return &response{Code: CodeInternal, Detail: "未登録のメソッドです: " + req.Method}
	}

	result, err := h(ctx, req.Payload)
	if err != nil {
		return &response{Code: CodeOf(err), Detail: DetailOf(err)}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Error("レスポンスのシリアライズに失敗",
			zap.String("method", req.Method), zap.Error(err))
		return &response{Code: CodeInternal, Detail: "レスポンスのシリアライズに失敗しました"}
	}
	return &response{Code: CodeOK, Payload: payload}
}

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

// echoRequest はテスト用のリクエスト構造。
type echoRequest struct {
	Message string `json:"message"`
}

// echoResponse はテスト用のレスポンス構造。
type echoResponse struct {
	Message string `json:"message"`
}

// startTestServer はテスト用のRPCサーバーをランダムポートで起動し、アドレスを返す。
func startTestServer(t *testing.T, register func(s *Server)) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("リスナーの作成に失敗: %v", err)
	}

	s := NewServer(zap.NewNop())
	register(s)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = s.Serve(ctx, lis) }()
	return lis.Addr().String()
}

// TestClientInvoke はクライアントとサーバーの往復通信のテスト。
func TestClientInvoke(t *testing.T) {
	t.Parallel()

	t.Run("登録済みメソッドの呼び出しが成功する", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Echo", func(_ context.Context, payload json.RawMessage) (any, error) {
				var req echoRequest
				if err := json.Unmarshal(payload, &req); err != nil {
					return nil, Errorf(CodeInvalidArgument, "ペイロードが不正です")
				}
				return echoResponse{Message: req.Message}, nil
			})
		})

		client := NewClient(addr, time.Second)
		var reply echoResponse
		if err := client.Invoke(context.Background(), "Echo/Echo", echoRequest{Message: "こんにちは"}, &reply); err != nil {
			t.Fatalf("Invokeに失敗: %v", err)
		}
		if reply.Message != "こんにちは" {
			t.Errorf("レスポンスが一致しません: got=%q", reply.Message)
		}
	})

	t.Run("ハンドラのRPCエラーがステータスコード付きで返る", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Fail", func(_ context.Context, _ json.RawMessage) (any, error) {
				return nil, Errorf(CodeNotFound, "対象が見つかりません")
			})
		})

		client := NewClient(addr, time.Second)
		err := client.Invoke(context.Background(), "Echo/Fail", echoRequest{}, nil)
		if CodeOf(err) != CodeNotFound {
			t.Fatalf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
		if DetailOf(err) != "対象が見つかりません" {
			t.Errorf("詳細メッセージが一致しません: got=%q", DetailOf(err))
		}
	})

	t.Run("ハンドラの非RPCエラーはCodeInternalになる", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Broken", func(_ context.Context, _ json.RawMessage) (any, error) {
				return nil, errors.New("想定外のエラー")
			})
		})

		client := NewClient(addr, time.Second)
		err := client.Invoke(context.Background(), "Echo/Broken", echoRequest{}, nil)
		if CodeOf(err) != CodeInternal {
			t.Errorf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
	})

	t.Run("未登録のメソッドはCodeInternalになる", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(_ *Server) {})

		client := NewClient(addr, time.Second)
		err := client.Invoke(context.Background(), "Echo/Unknown", echoRequest{}, nil)
		if CodeOf(err) != CodeInternal {
			t.Errorf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
	})

	t.Run("ハンドラのパニックはCodeInternalとして回復される", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Panic", func(_ context.Context, _ json.RawMessage) (any, error) {
				panic("テスト用パニック")
			})
		})

		client := NewClient(addr, time.Second)
		err := client.Invoke(context.Background(), "Echo/Panic", echoRequest{}, nil)
		if CodeOf(err) != CodeInternal {
			t.Errorf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
	})

	t.Run("接続先が存在しない場合はCodeUnavailableになる", func(t *testing.T) {
		t.Parallel()

		// 接続を受け付けてすぐ閉じることで、確実に空いていないポートとして扱う
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("リスナーの作成に失敗: %v", err)
		}
		addr := lis.Addr().String()
		_ = lis.Close()

		client := NewClient(addr, 500*time.Millisecond)
		err = client.Invoke(context.Background(), "Echo/Echo", echoRequest{}, nil)
		if CodeOf(err) != CodeUnavailable {
			t.Errorf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
	})

	t.Run("応答が遅いハンドラはタイムアウトしCodeUnavailableになる", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Slow", func(_ context.Context, _ json.RawMessage) (any, error) {
				time.Sleep(2 * time.Second)
				return echoResponse{}, nil
			})
		})

		client := NewClient(addr, 100*time.Millisecond)
		start := time.Now()
		err := client.Invoke(context.Background(), "Echo/Slow", echoRequest{}, nil)
		if CodeOf(err) != CodeUnavailable {
			t.Fatalf("ステータスコードが一致しません: got=%v", CodeOf(err))
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("タイムアウトが機能していません: elapsed=%v", elapsed)
		}
	})

	t.Run("連続した複数回の呼び出しがそれぞれ成功する", func(t *testing.T) {
		t.Parallel()

		addr := startTestServer(t, func(s *Server) {
			s.Register("Echo/Echo", func(_ context.Context, payload json.RawMessage) (any, error) {
				var req echoRequest
				_ = json.Unmarshal(payload, &req)
				return echoResponse{Message: req.Message}, nil
			})
		})

		client := NewClient(addr, time.Second)
		for _, msg := range []string{"一", "二", "三"} {
			var reply echoResponse
			if err := client.Invoke(context.Background(), "Echo/Echo", echoRequest{Message: msg}, &reply); err != nil {
				t.Fatalf("Invokeに失敗: %v", err)
			}
			if reply.Message != msg {
				t.Errorf("レスポンスが一致しません: got=%q, want=%q", reply.Message, msg)
			}
		}
	})
}

// TestCodeString はステータスコードの文字列表現のテスト。
func TestCodeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want string
	}{
		{CodeOK, "OK"},
		{CodeInvalidArgument, "INVALID_ARGUMENT"},
		{CodeNotFound, "NOT_FOUND"},
		{CodePermissionDenied, "PERMISSION_DENIED"},
		{CodeUnavailable, "UNAVAILABLE"},
		{CodeInternal, "INTERNAL"},
		{Code(99), "CODE(99)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", uint32(tt.code), got, tt.want)
		}
	}
}

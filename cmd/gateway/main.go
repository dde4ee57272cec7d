// gatewayサービスのエントリポイント。
// 外部からアクセス可能な唯一のサービスであり、投稿APIのルーティングと
// userサービスへの認証委譲を担当する。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "go.uber.org/automaxprocs"

	"github.com/nkmr-lab/microblog/internal/gateway"
	"github.com/nkmr-lab/microblog/pkg/config"
	"github.com/nkmr-lab/microblog/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	zlog, cleanup := logger.New(cfg.Log)
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Gateway.Port,
		Handler:           gateway.New(cfg.Gateway, zlog).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("gatewayサービスを起動",
			zap.String("addr", srv.Addr),
			zap.String("post_service", cfg.Gateway.PostServiceAddr),
			zap.String("user_service", cfg.Gateway.UserServiceURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("gatewayサービスの起動に失敗", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("gatewayサービスの停止に失敗", zap.Error(err))
	}
	zlog.Info("gatewayサービスを停止しました")
}

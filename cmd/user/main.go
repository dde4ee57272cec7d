// userサービスのエントリポイント。
// ユーザー登録・トークン発行・プロフィール管理を提供する。
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

	"github.com/nkmr-lab/microblog/internal/user"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := user.NewPostgresStore(ctx, cfg.User.DatabaseURL)
	if err != nil {
		zlog.Fatal("データベースの初期化に失敗", zap.Error(err))
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.User.Port,
		Handler:           user.New(store, cfg.User, zlog).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("userサービスを起動", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("userサービスの起動に失敗", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("userサービスの停止に失敗", zap.Error(err))
	}
	zlog.Info("userサービスを停止しました")
}

// postサービスのエントリポイント。
// 投稿の永続化とRPCインターフェースを提供し、運用系のHTTPリスナー
// （ヘルスチェック・メトリクス）を併設する。
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "go.uber.org/automaxprocs"

	"github.com/nkmr-lab/microblog/internal/post"
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

	sqlDB, err := post.OpenDB(cfg.Post.DBPath, zlog)
	if err != nil {
		zlog.Fatal("データベースの初期化に失敗", zap.String("path", cfg.Post.DBPath), zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	rpcSrv := post.NewServer(post.NewStore(sqlDB), zlog)

	lis, err := net.Listen("tcp", cfg.Post.RPCAddr)
	if err != nil {
		zlog.Fatal("RPCリスナーの作成に失敗", zap.String("addr", cfg.Post.RPCAddr), zap.Error(err))
	}

	opsSrv := &http.Server{
		Addr:              ":" + cfg.Post.OpsPort,
		Handler:           post.NewOpsRouter(zlog),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("postサービスのRPCサーバーを起動", zap.String("addr", cfg.Post.RPCAddr))
		return rpcSrv.Serve(ctx, lis)
	})
	g.Go(func() error {
		zlog.Info("postサービスの運用系HTTPサーバーを起動", zap.String("addr", opsSrv.Addr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal("postサービスが異常終了しました", zap.Error(err))
	}
	zlog.Info("postサービスを停止しました")
}

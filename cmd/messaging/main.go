// メッセージングサービスのエントリポイント。
// スレッドとメッセージのREST API、通知の配信、WebSocket/SSEのライブチャネルを提供する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/courier/internal/messaging"
	"github.com/nao1215/courier/pkg/config"
	"github.com/nao1215/courier/pkg/logger"
)

// shutdownTimeout は停止シグナルを受けてから処理中のリクエストを待つ時間。
const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := messaging.NewServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("メッセージングサーバーの初期化に失敗")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("メッセージングサービスを起動します")
		errCh <- server.Run()
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("メッセージングサービスの起動に失敗")
		}
	case <-ctx.Done():
		log.Info().Msg("停止シグナルを受信しました")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("停止処理に失敗")
		os.Exit(1)
	}
	log.Info().Msg("メッセージングサービスを停止しました")
	if runErr != nil {
		os.Exit(1)
	}
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/account"
	"github.com/nao1215/courier/internal/conversation"
	"github.com/nao1215/courier/internal/escalation"
	"github.com/nao1215/courier/internal/live"
	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/notify"
	"github.com/nao1215/courier/internal/registry"
	"github.com/nao1215/courier/internal/storage"
	"github.com/nao1215/courier/internal/store"
	"github.com/nao1215/courier/pkg/config"
	"github.com/nao1215/courier/pkg/middleware"
)

// Server はメッセージングサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// httpServer はrouterを提供するHTTPサーバー。
	httpServer *http.Server
	// logger はサーバー全体のロガー。
	logger zerolog.Logger
	// store は会話と通知の保存先。
	store *store.Store
	// registry はプロセスに1つだけのライブチャネルのレジストリ。
	registry *registry.Registry
	// dispatcher は通知の作成と配信を行う。
	dispatcher *notify.Dispatcher
	// engine はスレッドとメッセージの操作を行う。
	engine *conversation.Engine
	// escalator はメールをバックグラウンドで送信する。
	escalator *escalation.Escalator
	// live はWebSocketとSSEのハンドラー。
	live *live.Handler
	// metrics は/metricsで公開するメトリクスのレジストリ。
	metrics *prometheus.Registry
	// presence はRedisへのオンライン状態のミラー。未設定の場合はnil。
	presence *registry.RedisPresence
}

// components はサーバーが使う外部の協調先。テストでは差し替える。
type components struct {
	// directory はユーザー情報の参照先。
	directory account.Directory
	// uploader は添付ファイルのアップロード先。
	uploader storage.Uploader
	// mailer はメールの送信手段。
	mailer escalation.Mailer
	// presence はオンライン状態のミラー先。nilなら反映しない。
	presence *registry.RedisPresence
	// auth はREST APIの認証ミドルウェア。
	auth gin.HandlerFunc
}

// NewServer は設定から全コンポーネントを生成し、新しいメッセージングサーバーを返す。
func NewServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	comp := components{
		directory: account.NewHTTPDirectory(cfg.AccountServiceURL),
		uploader:  storage.NewHTTPUploader(cfg.StorageServiceURL),
		mailer:    escalation.NewLogMailer(logger),
		auth:      middleware.JWTAuth(cfg.JWTSecret),
	}
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRETが未設定のため認証が必要な操作はすべて拒否されます")
	}
	if cfg.Mail.Host != "" {
		mailer, err := escalation.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return nil, fmt.Errorf("メール送信の初期化に失敗: %w", err)
		}
		comp.mailer = mailer
	} else {
		logger.Info().Msg("SMTP_HOSTが未設定のためメールはログに出力します")
	}
	if cfg.Redis.Addr != "" {
		presence, err := registry.NewRedisPresence(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			// オンライン状態のミラーが無くても配信はできる
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redisに接続できないためオンライン状態を反映しません")
		} else {
			comp.presence = presence
		}
	}
	return newServer(ctx, cfg, logger, comp)
}

// newServer は与えられた協調先でサーバーを組み立てる。
func newServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, comp components) (*Server, error) {
	st, err := store.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	regOpts := []registry.Option{registry.WithMetrics(registry.NewMetrics(metrics))}
	if comp.presence != nil {
		regOpts = append(regOpts, registry.WithPresence(comp.presence))
	}
	reg := registry.New(logger, regOpts...)

	directory := comp.directory
	escalator, err := escalation.New(comp.mailer, logger, metrics, escalation.WithResolver(func(ctx context.Context, userID string) (string, error) {
		u, err := directory.Lookup(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.Email, nil
	}))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("メールテンプレートの初期化に失敗: %w", err)
	}

	routes, err := notify.NewRoutes(variantSelection(cfg.Variants))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("配信表の設定が不正です: %w", err)
	}
	links := notify.NewLinks(cfg.FrontendURL)

	dispatcher := notify.NewDispatcher(st, reg, logger,
		notify.WithRoutes(routes),
		notify.WithLinks(links),
		notify.WithEscalator(escalator),
		notify.WithMetrics(metrics),
	)
	// 再接続したクライアントが取りこぼした未読通知を最初のチャネルに送り直す
	reg.OnFirstRegister(dispatcher.Replay)

	engine := conversation.NewEngine(st, dispatcher, logger,
		conversation.WithDirectory(directory),
		conversation.WithUploader(comp.uploader),
		conversation.WithEscalator(escalator),
		conversation.WithLinks(links),
		conversation.WithAdminEmail(cfg.Mail.AdminEmail),
	)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		store:      st,
		registry:   reg,
		dispatcher: dispatcher,
		engine:     engine,
		escalator:  escalator,
		live:       live.NewHandler(reg, cfg.JWTSecret, logger, live.WithConnectLimit(cfg.Live.ConnectRPS, cfg.Live.ConnectBurst)),
		metrics:    metrics,
		presence:   comp.presence,
	}
	s.setupRoutes(comp.auth)
	return s, nil
}

// variantSelection は設定のバリアント名を配信表の選択に変換する。
func variantSelection(cfg config.VariantConfig) map[model.NotificationType][]notify.Variant {
	sel := make(map[model.NotificationType][]notify.Variant)
	add := func(typ model.NotificationType, names []string) {
		for _, name := range names {
			sel[typ] = append(sel[typ], notify.Variant(name))
		}
	}
	add(model.TypeFileAdded, cfg.FileAdded)
	add(model.TypeNewAdminComment, cfg.AdminComment)
	return sel
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。Shutdownで停止した場合はnilを返す。
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown はライブチャネルを閉じてからHTTPサーバーを停止し、
// 送信中のメールを待ってから保存先を閉じる。
func (s *Server) Shutdown(ctx context.Context) error {
	// SSEのストリームはチャネルが閉じるまで終わらないため先にレジストリを閉じる
	s.registry.Close()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.escalator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("送信中のメールを待たずに停止します")
	}

	if s.presence != nil {
		if cerr := s.presence.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("Redis接続のクローズに失敗しました")
		}
	}
	return errors.Join(err, s.store.Close())
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		threads := api.Group("/threads")
		{
			// スレッド作成（JSONまたはmultipart）
			threads.POST("", s.handleCreateThread())
			// 参加しているスレッド一覧
			threads.GET("", s.handleListThreads())
			// スレッド詳細（自分宛てのメッセージは既読になる）
			threads.GET("/:id", s.handleGetThread())
			// メッセージ送信（JSONまたはmultipart）
			threads.POST("/:id/messages", s.handleAddMessage())
			// 参加者によるスレッドの開閉
			threads.PUT("/:id/status", s.handleToggleThread())
		}

		// メッセージ単体の取得
		api.GET("/messages/:id", s.handleGetMessage())

		notifications := api.Group("/notifications")
		{
			// 通知一覧（ページング）
			notifications.GET("", s.handleListNotifications())
			// 未読数
			notifications.GET("/unread-count", s.handleUnreadCount())
			// 既読状態の反転
			notifications.PUT("/:id/read", s.handleToggleRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllRead())
			// 注文に関する通知を既読にする
			notifications.PUT("/orders/:orderId/read", s.handleMarkOrderRead())
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			// 管理者によるスレッドの開閉
			admin.PUT("/threads/:id/status", s.handleAdminToggleThread())
			// オンラインユーザー一覧
			admin.GET("/online", s.handleOnlineUsers())
		}

		// 通知作成（内部API - 注文管理から呼び出される）
		internal := api.Group("/internal")
		internal.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			internal.POST("/notifications", s.handleCreateNotification())
		}
	}

	// ライブチャネル（トークンはハンドラー内で検証する）
	s.live.RegisterRoutes(s.router)

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
}

// handleHealth はデータベースへの疎通を含めたヘルスチェックのハンドラ。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.logger.Error().Err(err).Msg("ヘルスチェックに失敗しました")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "messaging"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "messaging"})
	}
}

// handleOnlineUsers はオンラインユーザーの一覧を返すハンドラ。
// Redisが設定されていればプロセス横断の一覧、無ければこのプロセスの一覧を返す。
func (s *Server) handleOnlineUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.presence != nil {
			users, err := s.presence.OnlineUsers(c.Request.Context())
			if err == nil {
				c.JSON(http.StatusOK, gin.H{"users": users, "source": "redis"})
				return
			}
			s.logger.Warn().Err(err).Msg("Redisからオンラインユーザーを取得できませんでした")
		}
		c.JSON(http.StatusOK, gin.H{"users": s.registry.Users(), "source": "local"})
	}
}

package live

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/registry"
	"github.com/nao1215/courier/pkg/event"
	"github.com/nao1215/courier/pkg/middleware"
)

const (
	// writeWait は1回の書き込みのタイムアウト。
	writeWait = 10 * time.Second
	// pongWait はクライアントからのpongを待つ時間。
	pongWait = 60 * time.Second
	// pingPeriod はpingの送信間隔。pongWaitより短くする。
	pingPeriod = 54 * time.Second
	// heartbeatPeriod はSSEのコメント行の送信間隔。
	heartbeatPeriod = 25 * time.Second
	// maxMessageSize はクライアントから受け付けるフレームの最大サイズ。
	maxMessageSize = 4096
)

// Handler はライブチャネルのHTTPハンドラー。
type Handler struct {
	registry  *registry.Registry
	secret    string
	limiter   *limiterPool
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
	heartbeat time.Duration
}

// Option はHandlerの設定を変更する。
type Option func(*Handler)

// WithConnectLimit はユーザーごとの接続受付レートを設定する。
func WithConnectLimit(rps float64, burst int) Option {
	return func(h *Handler) { h.limiter = newLimiterPool(rps, burst) }
}

// WithHeartbeat はSSEのハートビート間隔を設定する。
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) { h.heartbeat = d }
}

// NewHandler はHandlerを生成する。secretはアクセストークンの署名シークレット。
func NewHandler(reg *registry.Registry, secret string, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		secret:   secret,
		limiter:  newLimiterPool(0, 0),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// オリジンの制限はCORSとトークン検証で行う
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger:    logger.With().Str("component", "live").Logger(),
		heartbeat: heartbeatPeriod,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes はライブチャネルのルートを登録する。
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/live")
	g.GET("/ws", h.ServeWebSocket)
	g.GET("/events", h.ServeEvents)
}

// admit はトークンと接続レートを検証する。失敗時はレスポンスを書き込んでfalseを返す。
func (h *Handler) admit(c *gin.Context, token string) (*middleware.JWTClaims, bool) {
	claims, err := middleware.ParseToken(h.secret, token)
	if err != nil {
		h.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("ライブチャネルの認証に失敗しました")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "トークンが無効です"})
		return nil, false
	}
	if !h.limiter.Allow(claims.UserID) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "接続要求が多すぎます"})
		return nil, false
	}
	return claims, true
}

// ServeWebSocket はWebSocket接続を受け付け、切断までイベントを送り続ける。
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	claims, ok := h.admit(c, token)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgradeが失敗した場合はレスポンスを書き込み済み
		h.logger.Warn().Err(err).Str("user_id", claims.UserID).Msg("WebSocketへのアップグレードに失敗しました")
		return
	}

	ch := newChannel("ws")
	if err := h.registry.Register(c.Request.Context(), claims.UserID, ch); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.registry.Unregister(claims.UserID, ch)

	go h.writePump(conn, ch)
	h.readPump(conn, ch)
}

// readPump はクライアントからのフレームを読み捨て、切断を検出する。
func (h *Handler) readPump(conn *websocket.Conn, ch *channel) {
	defer func() {
		ch.Close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Str("channel_id", ch.id).Msg("WebSocketの読み込みに失敗しました")
			}
			return
		}
	}
}

// writePump は送信キューのイベントとpingを書き込む。
func (h *Handler) writePump(conn *websocket.Conn, ch *channel) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ch.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ch.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload := <-ch.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn().Err(err).Str("channel_id", ch.id).Msg("WebSocketへの書き込みに失敗しました")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeEvents はSSEストリームを開き、切断までイベントを送り続ける。
// トークンはクエリパラメータでのみ受け付ける。
func (h *Handler) ServeEvents(c *gin.Context) {
	claims, ok := h.admit(c, c.Query("token"))
	if !ok {
		return
	}

	ch := newChannel("sse")
	if err := h.registry.Register(c.Request.Context(), claims.UserID, ch); err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "サーバーは停止処理中です"})
		return
	}
	defer h.registry.Unregister(claims.UserID, ch)

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", sse.ContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch.done:
			return
		case payload := <-ch.send:
			if err := sse.Encode(w, sseFrame(payload)); err != nil {
				h.logger.Warn().Err(err).Str("channel_id", ch.id).Msg("SSEの書き込みに失敗しました")
				return
			}
			w.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			w.Flush()
		}
	}
}

// sseFrame はエンコード済みのイベントをSSEのフレームにする。
// id行にはイベントのIDを入れる。イベント名はdataのJSONに含まれるためevent行は付けない。
func sseFrame(payload []byte) sse.Event {
	frame := sse.Event{Data: string(payload)}
	if ev, err := event.Decode(payload); err == nil {
		frame.Id = ev.ID
	}
	return frame
}

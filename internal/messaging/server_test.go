package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/account"
	"github.com/nao1215/courier/internal/escalation"
	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/storage"
	"github.com/nao1215/courier/pkg/config"
	"github.com/nao1215/courier/pkg/event"
	"github.com/nao1215/courier/pkg/event/eventtest"
	"github.com/nao1215/courier/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-for-unit-tests"

// headerAuth はJWTミドルウェアの代わりにヘッダーからユーザーIDとロールを設定する。
func headerAuth(c *gin.Context) {
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		c.Set("user_id", userID)
	}
	if role := c.GetHeader("X-User-Role"); role != "" {
		c.Set("role", role)
	}
	c.Next()
}

// fakeUploader はアップロードされたファイル名を記録する。
type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *fakeUploader) Upload(_ context.Context, f storage.Upload) (model.Attachment, error) {
	if f.Filename == "broken.txt" {
		return model.Attachment{}, errors.New("storage unavailable")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, f.Filename)
	return model.Attachment{Filename: f.Filename, URL: "http://files.example/" + f.Filename}, nil
}

// captureMailer は送信したメールを記録する。
type captureMailer struct {
	mu   sync.Mutex
	sent []escalation.Mail
}

func (m *captureMailer) Send(_ context.Context, mail escalation.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

var testDirectory = account.StaticDirectory{
	Users: map[string]account.User{
		"u1":    {ID: "u1", Email: "u1@example.com"},
		"u2":    {ID: "u2", Email: "u2@example.com"},
		"admin": {ID: "admin", Email: "admin@example.com", Role: middleware.RoleAdmin},
	},
	Contacts: map[model.Department]string{
		model.DepartmentPayment: "u2",
	},
}

// setupTestServer はインメモリSQLiteとテスト用の協調先でサーバーを構築する。
func setupTestServer(t *testing.T, auth gin.HandlerFunc) (*Server, *fakeUploader) {
	t.Helper()

	uploader := &fakeUploader{}
	cfg := config.Config{
		Port:        "0",
		DBPath:      ":memory:",
		JWTSecret:   testSecret,
		FrontendURL: "http://front.example",
		Live:        config.LiveConfig{ConnectRPS: 100, ConnectBurst: 100},
	}
	s, err := newServer(t.Context(), cfg, zerolog.Nop(), components{
		directory: testDirectory,
		uploader:  uploader,
		mailer:    &captureMailer{},
		auth:      auth,
	})
	if err != nil {
		t.Fatalf("サーバーの初期化に失敗: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, uploader
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(s *Server, method, path, userID string, body any, role ...string) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if len(role) > 0 {
		req.Header.Set("X-User-Role", role[0])
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// decode はレスポンスボディをJSONとして読み込む。
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v (body=%s)", err, w.Body.String())
	}
	return v
}

// createThread はu1からu2へのスレッドを作成する。
func createThread(t *testing.T, s *Server) threadDetailResponse {
	t.Helper()
	w := doRequest(s, http.MethodPost, "/api/v1/threads", "u1", map[string]string{
		"subject":     "請求について",
		"recipientId": "u2",
		"department":  "payment",
		"content":     "二重に請求されています",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("スレッド作成: ステータスコード %d, body=%s", w.Code, w.Body.String())
	}
	return decode[threadDetailResponse](t, w)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, headerAuth)
	w := doRequest(s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := decode[map[string]string](t, w); got["status"] != "ok" || got["service"] != "messaging" {
		t.Errorf("レスポンス: got %v", got)
	}
}

func TestThreadAPI(t *testing.T) {
	t.Parallel()

	t.Run("正常系: スレッドを作成して詳細を取得できる", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		if !created.IsOpen || len(created.Participants) != 2 || len(created.Messages) != 1 {
			t.Fatalf("作成結果: got %+v", created)
		}
		if created.LastMessage != created.Messages[0].ID {
			t.Errorf("最新メッセージ: got %s, want %s", created.LastMessage, created.Messages[0].ID)
		}

		w := doRequest(s, http.MethodGet, "/api/v1/threads/"+created.ID, "u2", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, body=%s", w.Code, w.Body.String())
		}
		detail := decode[threadDetailResponse](t, w)
		if len(detail.Messages) != 1 || !detail.Messages[0].IsRead {
			t.Errorf("受信者が開いたメッセージは既読になるべき: %+v", detail.Messages)
		}
	})

	t.Run("正常系: 窓口を省略すると部門の窓口宛てになる", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)

		w := doRequest(s, http.MethodPost, "/api/v1/threads", "u1", map[string]string{
			"subject":    "返金",
			"department": "payment",
			"content":    "返金してください",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, body=%s", w.Code, w.Body.String())
		}
		if got := decode[threadDetailResponse](t, w); got.Participants[1] != "u2" {
			t.Errorf("参加者: got %v", got.Participants)
		}
	})

	t.Run("正常系: 一覧を部門と開閉状態で絞り込める", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		w := doRequest(s, http.MethodGet, "/api/v1/threads?department=payment&open=true", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d", w.Code)
		}
		if got := decode[[]threadResponse](t, w); len(got) != 1 || got[0].ID != created.ID {
			t.Errorf("一覧: got %+v", got)
		}

		w = doRequest(s, http.MethodGet, "/api/v1/threads?open=false", "u1", nil)
		if got := decode[[]threadResponse](t, w); len(got) != 0 {
			t.Errorf("閉じたスレッドは無いはず: got %+v", got)
		}

		w = doRequest(s, http.MethodGet, "/api/v1/threads?open=maybe", "u1", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("不正なopen: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("正常系: メッセージを送ると相手の未読数が1増える", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		before := decode[map[string]int64](t, doRequest(s, http.MethodGet, "/api/v1/notifications/unread-count", "u2", nil))["count"]

		w := doRequest(s, http.MethodPost, "/api/v1/threads/"+created.ID+"/messages", "u1", map[string]string{"content": "Help"})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, body=%s", w.Code, w.Body.String())
		}
		msg := decode[messageResponse](t, w)

		after := decode[map[string]int64](t, doRequest(s, http.MethodGet, "/api/v1/notifications/unread-count", "u2", nil))["count"]
		if after != before+1 {
			t.Errorf("未読数: got %d, want %d", after, before+1)
		}

		w = doRequest(s, http.MethodGet, "/api/v1/threads/"+created.ID, "u1", nil)
		if got := decode[threadDetailResponse](t, w); got.LastMessage != msg.ID {
			t.Errorf("最新メッセージ: got %s, want %s", got.LastMessage, msg.ID)
		}
	})

	t.Run("正常系: multipartで添付ファイル付きメッセージを送れる", func(t *testing.T) {
		t.Parallel()
		s, uploader := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("content", "ログを添付します")
		for _, name := range []string{"app.log", "broken.txt", "screen.png"} {
			fw, _ := mw.CreateFormFile(attachmentField, name)
			_, _ = fw.Write([]byte("data of " + name))
		}
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/threads/"+created.ID+"/messages", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-User-ID", "u2")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, body=%s", w.Code, w.Body.String())
		}
		msg := decode[messageResponse](t, w)
		if len(msg.Attachments) != 2 || msg.Attachments[0].Filename != "app.log" || msg.Attachments[1].Filename != "screen.png" {
			t.Errorf("添付ファイル: got %+v", msg.Attachments)
		}
		if len(uploader.names) != 2 {
			t.Errorf("アップロード数: got %v", uploader.names)
		}
	})

	t.Run("正常系: 開閉を2回反転すると元に戻る", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		w := doRequest(s, http.MethodPut, "/api/v1/threads/"+created.ID+"/status", "u1", nil)
		if got := decode[threadResponse](t, w); w.Code != http.StatusOK || got.IsOpen {
			t.Fatalf("1回目: status=%d, body=%s", w.Code, w.Body.String())
		}
		w = doRequest(s, http.MethodPut, "/api/v1/threads/"+created.ID+"/status", "u1", nil)
		if got := decode[threadResponse](t, w); w.Code != http.StatusOK || !got.IsOpen {
			t.Fatalf("2回目: status=%d, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("正常系: 管理者用の入口は管理者ロールだけが使える", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		created := createThread(t, s)

		w := doRequest(s, http.MethodPut, "/api/v1/admin/threads/"+created.ID+"/status", "u1", nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("管理者以外: got %d, want %d", w.Code, http.StatusForbidden)
		}
		w = doRequest(s, http.MethodPut, "/api/v1/admin/threads/"+created.ID+"/status", "admin", nil, middleware.RoleAdmin)
		if got := decode[threadResponse](t, w); w.Code != http.StatusOK || got.IsOpen {
			t.Errorf("管理者: status=%d, body=%s", w.Code, w.Body.String())
		}
	})

	tests := []struct {
		name       string
		method     string
		path       func(threadID string) string
		userID     string
		body       any
		wantStatus int
	}{
		{
			name:       "異常系: 部門が無いスレッド作成は400",
			method:     http.MethodPost,
			path:       func(string) string { return "/api/v1/threads" },
			userID:     "u1",
			body:       map[string]string{"subject": "件名", "recipientId": "u2", "content": "本文"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "異常系: 本文が空のメッセージは400",
			method:     http.MethodPost,
			path:       func(id string) string { return "/api/v1/threads/" + id + "/messages" },
			userID:     "u1",
			body:       map[string]string{"content": ""},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "異常系: 参加者以外のメッセージは403",
			method:     http.MethodPost,
			path:       func(id string) string { return "/api/v1/threads/" + id + "/messages" },
			userID:     "stranger",
			body:       map[string]string{"content": "こんにちは"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "異常系: 存在しないスレッドへのメッセージは404",
			method:     http.MethodPost,
			path:       func(string) string { return "/api/v1/threads/missing/messages" },
			userID:     "u1",
			body:       map[string]string{"content": "こんにちは"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "異常系: 参加者以外の開閉は403",
			method:     http.MethodPut,
			path:       func(id string) string { return "/api/v1/threads/" + id + "/status" },
			userID:     "stranger",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "異常系: 自分宛てのスレッド作成は422",
			method:     http.MethodPost,
			path:       func(string) string { return "/api/v1/threads" },
			userID:     "u2",
			body:       map[string]string{"subject": "件名", "department": "payment", "content": "本文"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "異常系: ユーザーIDが無い場合は401",
			method:     http.MethodGet,
			path:       func(string) string { return "/api/v1/threads" },
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _ := setupTestServer(t, headerAuth)
			created := createThread(t, s)

			w := doRequest(s, tt.method, tt.path(created.ID), tt.userID, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード: got %d, want %d (body=%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestGetMessage(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, headerAuth)
	created := createThread(t, s)
	path := "/api/v1/messages/" + created.Messages[0].ID

	if got := decode[messageResponse](t, doRequest(s, http.MethodGet, path, "u1", nil)); got.IsRead {
		t.Error("送信者が開いても既読にならない")
	}
	if got := decode[messageResponse](t, doRequest(s, http.MethodGet, path, "u2", nil)); !got.IsRead {
		t.Error("受信者が開いたら既読になる")
	}
	if w := doRequest(s, http.MethodGet, path, "stranger", nil); w.Code != http.StatusForbidden {
		t.Errorf("参加者以外: got %d, want %d", w.Code, http.StatusForbidden)
	}
	if w := doRequest(s, http.MethodGet, "/api/v1/messages/missing", "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("存在しないメッセージ: got %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNotificationAPI(t *testing.T) {
	t.Parallel()

	// sendOrderUpdate は内部APIで注文ステータス変更の通知を作成する。
	sendOrderUpdate := func(t *testing.T, s *Server, userID, orderID string) map[string]any {
		t.Helper()
		w := doRequest(s, http.MethodPost, "/api/v1/internal/notifications", "order-service", map[string]any{
			"userId":    userID,
			"type":      "order_status_change",
			"orderId":   orderID,
			"newStatus": "shipped",
		}, middleware.RoleAdmin)
		if w.Code != http.StatusCreated {
			t.Fatalf("通知作成: ステータスコード %d, body=%s", w.Code, w.Body.String())
		}
		return decode[map[string]any](t, w)
	}

	t.Run("正常系: 内部APIで作成した通知を一覧でページングできる", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		for _, order := range []string{"o1", "o2", "o3"} {
			sendOrderUpdate(t, s, "u1", order)
		}

		w := doRequest(s, http.MethodGet, "/api/v1/notifications?page=2&limit=2", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d", w.Code)
		}
		page := decode[notificationPage](t, w)
		if page.Total != 3 || page.Page != 2 || page.Limit != 2 || len(page.Items) != 1 {
			t.Fatalf("ページ: got total=%d page=%d limit=%d items=%d", page.Total, page.Page, page.Limit, len(page.Items))
		}
		if page.Items[0].Order != "o1" || page.Items[0].NewStatus != "shipped" {
			t.Errorf("最も古い通知が最後のページに来るべき: %+v", page.Items[0])
		}

		w = doRequest(s, http.MethodGet, "/api/v1/notifications?limit=500", "u1", nil)
		if got := decode[notificationPage](t, w); got.Limit != maxPageLimit {
			t.Errorf("件数の上限: got %d, want %d", got.Limit, maxPageLimit)
		}
		for _, query := range []string{
			"page=0",
			"page=4611686018427387905&limit=2",
			"page=9223372036854775807",
			"page=99999999999999999999",
		} {
			w = doRequest(s, http.MethodGet, "/api/v1/notifications?"+query, "u1", nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("不正なpage (%s): got %d, want %d", query, w.Code, http.StatusBadRequest)
			}
		}
		// データより先のページは空の一覧になる
		w = doRequest(s, http.MethodGet, "/api/v1/notifications?page=1000&limit=2", "u1", nil)
		if got := decode[notificationPage](t, w); w.Code != http.StatusOK || len(got.Items) != 0 || got.Total != 3 {
			t.Errorf("範囲外のページ: got status=%d items=%d total=%d", w.Code, len(got.Items), got.Total)
		}
	})

	t.Run("正常系: 既読操作のたびに未読数が一致する", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		first := sendOrderUpdate(t, s, "u1", "o1")
		sendOrderUpdate(t, s, "u1", "o1")
		sendOrderUpdate(t, s, "u1", "o2")

		unread := func() int64 {
			return decode[map[string]int64](t, doRequest(s, http.MethodGet, "/api/v1/notifications/unread-count", "u1", nil))["count"]
		}
		if got := unread(); got != 3 {
			t.Fatalf("未読数: got %d, want 3", got)
		}

		w := doRequest(s, http.MethodPut, "/api/v1/notifications/"+first["id"].(string)+"/read", "u1", nil)
		if got := decode[map[string]any](t, w); w.Code != http.StatusOK || got["isRead"] != true {
			t.Fatalf("既読の反転: status=%d body=%s", w.Code, w.Body.String())
		}
		if got := unread(); got != 2 {
			t.Errorf("1件既読後の未読数: got %d, want 2", got)
		}

		w = doRequest(s, http.MethodPut, "/api/v1/notifications/orders/o1/read", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("注文単位の既読: status=%d", w.Code)
		}
		if got := unread(); got != 1 {
			t.Errorf("注文o1を既読後の未読数: got %d, want 1", got)
		}

		w = doRequest(s, http.MethodGet, "/api/v1/notifications?unread=true", "u1", nil)
		if got := decode[notificationPage](t, w); got.Total != 1 || len(got.Items) != 1 || got.Items[0].Order != "o2" {
			t.Errorf("未読のみの一覧: got %+v", got)
		}

		w = doRequest(s, http.MethodPut, "/api/v1/notifications/read-all", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("全既読: status=%d", w.Code)
		}
		if got := unread(); got != 0 {
			t.Errorf("全既読後の未読数: got %d, want 0", got)
		}
	})

	t.Run("異常系: 他人の通知は変更できない", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)
		n := sendOrderUpdate(t, s, "u1", "o1")

		w := doRequest(s, http.MethodPut, "/api/v1/notifications/"+n["id"].(string)+"/read", "u2", nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
		w = doRequest(s, http.MethodPut, "/api/v1/notifications/missing/read", "u1", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("存在しない通知: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("異常系: 内部APIの入力検証", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, headerAuth)

		w := doRequest(s, http.MethodPost, "/api/v1/internal/notifications", "u1", map[string]any{
			"userId": "u1", "type": "status_change", "orderId": "o1",
		})
		if w.Code != http.StatusForbidden {
			t.Errorf("管理者以外: got %d, want %d", w.Code, http.StatusForbidden)
		}
		w = doRequest(s, http.MethodPost, "/api/v1/internal/notifications", "order-service", map[string]any{
			"userId": "u1", "type": "order_status_change", "orderId": "o1",
		}, middleware.RoleAdmin)
		if w.Code != http.StatusBadRequest {
			t.Errorf("newStatus欠落: got %d, want %d", w.Code, http.StatusBadRequest)
		}
		w = doRequest(s, http.MethodPost, "/api/v1/internal/notifications", "order-service", map[string]any{
			"userId": "u1", "type": "promotion",
		}, middleware.RoleAdmin)
		if w.Code != http.StatusBadRequest {
			t.Errorf("不明な種別: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, headerAuth)
	createThread(t, s)

	w := doRequest(s, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `courier_notify_dispatched_total{type="new_message"} 1`) {
		t.Errorf("通知作成数のメトリクスが無い: %s", w.Body.String())
	}
}

func TestJWTAuthentication(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, middleware.JWTAuth(testSecret))

	w := doRequest(s, http.MethodGet, "/api/v1/threads", "u1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("トークン無し: got %d, want %d", w.Code, http.StatusUnauthorized)
	}

	token, err := middleware.GenerateJWT(testSecret, "u1", "u1@example.com", "")
	if err != nil {
		t.Fatalf("トークンの生成に失敗: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("有効なトークン: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLiveDelivery(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, headerAuth)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	// 接続前に届いた通知は接続時に送り直される
	w := doRequest(s, http.MethodPost, "/api/v1/internal/notifications", "order-service", map[string]any{
		"userId": "u1", "type": "status_change", "orderId": "o1",
	}, middleware.RoleAdmin)
	if w.Code != http.StatusCreated {
		t.Fatalf("通知作成: status=%d body=%s", w.Code, w.Body.String())
	}

	token, err := middleware.GenerateJWT(testSecret, "u1", "u1@example.com", "")
	if err != nil {
		t.Fatalf("トークンの生成に失敗: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocketの接続に失敗: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	readUntil := func(name event.Name) event.Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var ev event.Event
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("%sを受信できません: %v", name, err)
			}
			if ev.Name == name {
				return ev
			}
		}
	}

	replayed := readUntil(event.NameNotification)
	doc, err := eventtest.DecodeData[map[string]any](&replayed)
	if err != nil || (*doc)["order"] != "o1" {
		t.Errorf("送り直された通知: got %v (err=%v)", doc, err)
	}
	count := readUntil(event.NameUnreadCount)
	if got, err := eventtest.DecodeData[event.UnreadCountData](&count); err != nil || got.Count != 1 {
		t.Errorf("接続時の未読数: got %v (err=%v)", got, err)
	}

	// 接続中のスレッド作成は即座に配信される
	w = doRequest(s, http.MethodPost, "/api/v1/threads", "u2", map[string]string{
		"subject": "配送について", "recipientId": "u1", "department": "other", "content": "いつ届きますか",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("スレッド作成: status=%d body=%s", w.Code, w.Body.String())
	}
	readUntil(event.NameNewMessage)
	count = readUntil(event.NameUnreadCount)
	if got, err := eventtest.DecodeData[event.UnreadCountData](&count); err != nil || got.Count != 2 {
		t.Errorf("新着後の未読数: got %v (err=%v)", got, err)
	}
}

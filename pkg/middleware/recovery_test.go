package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニック値の型によらず500が返りログが出力されること", func(t *testing.T) {
		t.Parallel()

		for _, v := range []any{"テスト用パニック", 42, http.ErrAbortHandler} {
			var buf bytes.Buffer
			router := gin.New()
			router.Use(Recovery(zerolog.New(&buf)))
			router.POST("/panic", func(_ *gin.Context) {
				panic(v)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/panic", nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("panic(%v): ステータスコード = %d, want %d", v, w.Code, http.StatusInternalServerError)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["error"] != "内部サーバーエラーが発生しました" {
				t.Errorf("error = %q, want %q", body["error"], "内部サーバーエラーが発生しました")
			}
			if !strings.Contains(buf.String(), `"path":"/panic"`) {
				t.Errorf("ログにパスが含まれていない: %s", buf.String())
			}
		}
	})

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(zerolog.Nop()))
		router.GET("/panic", func(_ *gin.Context) {
			panic("パニック発生")
		})
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "recovered"})
		})

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("1回目のステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("2回目のステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
	})
}

// TestRequestLogger はアクセスログのレベル分けを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		wantLevel string
	}{
		{status: http.StatusOK, wantLevel: "info"},
		{status: http.StatusNotFound, wantLevel: "warn"},
		{status: http.StatusInternalServerError, wantLevel: "error"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestLogger(zerolog.New(&buf)))
		router.GET("/status", func(c *gin.Context) {
			c.Status(tt.status)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

		var entry map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
			t.Fatalf("ログ行のデコードに失敗: %v", err)
		}
		if entry["level"] != tt.wantLevel {
			t.Errorf("status=%d: level = %v, want %s", tt.status, entry["level"], tt.wantLevel)
		}
		if entry["path"] != "/status" {
			t.Errorf("path = %v, want /status", entry["path"])
		}
	}
}

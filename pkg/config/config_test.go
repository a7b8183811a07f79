package config

import (
	"slices"
	"testing"
)

// TestLoad は環境変数から設定が読み込まれることを検証する。
// t.Setenvを使うため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("未設定の場合はデフォルト値を使用する", func(t *testing.T) {
		for _, key := range []string{"PORT", "JWT_SECRET", "SMTP_PORT", "LIVE_CONNECT_BURST", "NOTIFY_FILE_ADDED_VARIANTS"} {
			t.Setenv(key, "")
		}

		cfg := Load()
		if cfg.Port != "8087" {
			t.Errorf("Port = %q, want 8087", cfg.Port)
		}
		if cfg.JWTSecret != "" {
			t.Errorf("JWTSecret = %q, want 空文字列", cfg.JWTSecret)
		}
		if cfg.Mail.Port != 587 {
			t.Errorf("Mail.Port = %d, want 587", cfg.Mail.Port)
		}
		if cfg.Live.ConnectBurst != 10 {
			t.Errorf("Live.ConnectBurst = %d, want 10", cfg.Live.ConnectBurst)
		}
		if cfg.Variants.FileAdded != nil {
			t.Errorf("Variants.FileAdded = %v, want nil", cfg.Variants.FileAdded)
		}
	})

	t.Run("環境変数の値が反映される", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("SMTP_PORT", "2525")
		t.Setenv("LIVE_CONNECT_RPS", "2.5")
		t.Setenv("NOTIFY_ADMIN_COMMENT_VARIANTS", "comment_event, notification ,")

		cfg := Load()
		if cfg.Port != "9000" {
			t.Errorf("Port = %q, want 9000", cfg.Port)
		}
		if cfg.JWTSecret != "secret" {
			t.Errorf("JWTSecret = %q, want secret", cfg.JWTSecret)
		}
		if cfg.Mail.Port != 2525 {
			t.Errorf("Mail.Port = %d, want 2525", cfg.Mail.Port)
		}
		if cfg.Live.ConnectRPS != 2.5 {
			t.Errorf("Live.ConnectRPS = %v, want 2.5", cfg.Live.ConnectRPS)
		}
		want := []string{"comment_event", "notification"}
		if !slices.Equal(cfg.Variants.AdminComment, want) {
			t.Errorf("Variants.AdminComment = %v, want %v", cfg.Variants.AdminComment, want)
		}
	})

	t.Run("不正な数値はデフォルト値になる", func(t *testing.T) {
		t.Setenv("SMTP_PORT", "abc")
		t.Setenv("LIVE_CONNECT_RPS", "-1")

		cfg := Load()
		if cfg.Mail.Port != 587 {
			t.Errorf("Mail.Port = %d, want 587", cfg.Mail.Port)
		}
		if cfg.Live.ConnectRPS != 1 {
			t.Errorf("Live.ConnectRPS = %v, want 1", cfg.Live.ConnectRPS)
		}
	})
}

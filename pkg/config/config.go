// Package config は環境変数と .env ファイルからサービス設定を読み込む。
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はメッセージングサービス全体の設定。
type Config struct {
	// Env は実行環境（dev/prod）。
	Env string
	// LogLevel はログレベル。空の場合は環境に応じたデフォルト。
	LogLevel string
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DBPath はSQLiteデータベースのパス（DSN）。
	DBPath string
	// JWTSecret はアクセストークン検証用の署名シークレット。
	// 空の場合、認証が必要な操作はすべて401で拒否される。
	JWTSecret string
	// FrontendURL はディープリンクとCORSで使用するフロントエンドのURL。
	FrontendURL string
	// AccountServiceURL はユーザーアカウントサービスのベースURL。
	AccountServiceURL string
	// StorageServiceURL は添付ファイル保存サービスのベースURL。
	StorageServiceURL string
	// Mail はメール送信の設定。
	Mail MailConfig
	// Redis はプレゼンス情報のミラー先Redisの設定。
	Redis RedisConfig
	// Live はライブチャネルの接続制限の設定。
	Live LiveConfig
	// Variants は配信ペイロード形状の選択。
	Variants VariantConfig
}

// MailConfig はSMTPによるエスカレーションメールの設定。
type MailConfig struct {
	// Host はSMTPサーバーのホスト名。空の場合はメール送信をログ出力で代替する。
	Host string
	// Port はSMTPサーバーのポート番号。
	Port int
	// Username はSMTP認証のユーザー名。
	Username string
	// Password はSMTP認証のパスワード。
	Password string
	// From は送信元メールアドレス。
	From string
	// AdminEmail は管理者向けエスカレーションメールの宛先。
	AdminEmail string
}

// RedisConfig はRedis接続の設定。
type RedisConfig struct {
	// Addr はRedisのアドレス。空の場合はプレゼンスのミラーを行わない。
	Addr string
	// Password はRedisのパスワード。
	Password string
}

// LiveConfig はライブチャネルの接続受付の設定。
type LiveConfig struct {
	// ConnectRPS はユーザーごとの1秒あたりの接続受付数。
	ConnectRPS float64
	// ConnectBurst はユーザーごとの接続受付のバースト数。
	ConnectBurst int
}

// VariantConfig は仕様が確定していない通知種別のペイロード形状の選択。
type VariantConfig struct {
	// FileAdded はfile_added通知で送信するバリアント名の一覧。
	FileAdded []string
	// AdminComment はnew_admin_comment通知で送信するバリアント名の一覧。
	AdminComment []string
}

// Load は .env ファイル（存在する場合）と環境変数から設定を読み込む。
func Load() Config {
	// .env が無い環境（コンテナ等）では環境変数のみを使用する
	_ = godotenv.Load(".env")

	return Config{
		Env:               getEnvOr("APP_ENV", "dev"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Port:              getEnvOr("PORT", "8087"),
		DBPath:            getEnvOr("DB_PATH", "/data/messaging.db?_journal_mode=WAL&_busy_timeout=5000"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		FrontendURL:       getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		AccountServiceURL: getEnvOr("ACCOUNT_SERVICE_URL", "http://localhost:8080"),
		StorageServiceURL: getEnvOr("STORAGE_SERVICE_URL", "http://localhost:8081"),
		Mail: MailConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       getEnvInt("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       getEnvOr("MAIL_FROM", "no-reply@localhost"),
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Live: LiveConfig{
			ConnectRPS:   getEnvFloat("LIVE_CONNECT_RPS", 1),
			ConnectBurst: getEnvInt("LIVE_CONNECT_BURST", 10),
		},
		Variants: VariantConfig{
			FileAdded:    getEnvList("NOTIFY_FILE_ADDED_VARIANTS"),
			AdminComment: getEnvList("NOTIFY_ADMIN_COMMENT_VARIANTS"),
		},
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvInt は環境変数を整数として取得する。解析できない場合はデフォルト値を返す。
func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvFloat は環境変数を浮動小数点数として取得する。
func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// getEnvList はカンマ区切りの環境変数をスライスとして取得する。未設定の場合はnil。
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

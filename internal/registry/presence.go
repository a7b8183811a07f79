package registry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence はユーザーのオンライン状態を外部に反映する。
type Presence interface {
	// SetOnline はユーザーをオンラインにする。
	SetOnline(ctx context.Context, userID string) error
	// SetOffline はユーザーをオフラインにする。
	SetOffline(ctx context.Context, userID string) error
}

// DefaultPresenceKey はオンラインユーザーを保持するRedisハッシュのキー。
const DefaultPresenceKey = "courier:online_users"

// RedisPresence はオンライン状態をRedisのハッシュに反映する。
// フィールドがユーザーID、値がオンラインになった時刻（Unix秒）。
type RedisPresence struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisPresence はRedisに接続し、疎通を確認したRedisPresenceを返す。
func NewRedisPresence(ctx context.Context, addr, password string) (*RedisPresence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redisへの接続確認に失敗: %w", err)
	}
	return &RedisPresence{client: client, key: DefaultPresenceKey, ttl: 24 * time.Hour}, nil
}

// SetOnline はハッシュにユーザーを追加する。
func (p *RedisPresence) SetOnline(ctx context.Context, userID string) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := p.client.HSet(ctx, p.key, userID, now).Err(); err != nil {
		return fmt.Errorf("オンライン状態の登録に失敗: %w", err)
	}
	// プロセスが異常終了した場合に残り続けないよう期限を付ける
	p.client.Expire(ctx, p.key, p.ttl)
	return nil
}

// SetOffline はハッシュからユーザーを削除する。
func (p *RedisPresence) SetOffline(ctx context.Context, userID string) error {
	if err := p.client.HDel(ctx, p.key, userID).Err(); err != nil {
		return fmt.Errorf("オンライン状態の削除に失敗: %w", err)
	}
	return nil
}

// OnlineUsers はオンラインのユーザーIDを返す。
func (p *RedisPresence) OnlineUsers(ctx context.Context) ([]string, error) {
	users, err := p.client.HKeys(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("オンラインユーザーの取得に失敗: %w", err)
	}
	return users, nil
}

// Close はRedis接続を閉じる。
func (p *RedisPresence) Close() error {
	return p.client.Close()
}

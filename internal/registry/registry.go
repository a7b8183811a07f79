package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/courier/pkg/event"
)

// ErrClosed は停止済みのレジストリに登録しようとした場合のエラー。
var ErrClosed = errors.New("レジストリは停止済みです")

// presenceTimeout はオンライン状態の反映1回あたりのタイムアウト。
const presenceTimeout = 3 * time.Second

// Channel は1本のライブチャネル。
type Channel interface {
	// ID はチャネルの一意識別子。
	ID() string
	// Send はエンコード済みのイベントを送信する。ブロックしてはならない。
	Send(payload []byte) error
	// Close はチャネルを閉じる。複数回呼ばれてもよい。
	Close()
}

// RegisterHook はユーザーの最初のチャネルが登録されたときに呼ばれる。
type RegisterHook func(ctx context.Context, userID string, ch Channel)

// Option はRegistryの設定を変更する。
type Option func(*Registry)

// WithPresence はオンライン状態の反映先を設定する。
func WithPresence(p Presence) Option {
	return func(r *Registry) { r.presence = p }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry はユーザーIDとライブチャネルの対応を管理する。
type Registry struct {
	mu       sync.RWMutex
	channels map[string][]Channel
	closed   bool
	hooks    []RegisterHook

	// presenceMu はオンライン状態の反映を直列化する。
	presenceMu sync.Mutex
	presence   Presence
	metrics    *Metrics
	logger     zerolog.Logger
}

// New はRegistryを生成する。
func New(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		channels: make(map[string][]Channel),
		logger:   logger.With().Str("component", "registry").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnFirstRegister はユーザーの最初のチャネル登録時に呼ぶフックを追加する。
func (r *Registry) OnFirstRegister(hook RegisterHook) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Register はチャネルを登録する。ユーザーにとって最初のチャネルであれば
// オンライン状態を反映し、登録フックを呼ぶ。
func (r *Registry) Register(ctx context.Context, userID string, ch Channel) error {
	if r == nil {
		return ErrClosed
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	first := len(r.channels[userID]) == 0
	r.channels[userID] = append(r.channels[userID], ch)
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	r.metrics.channelOpened()
	r.logger.Debug().Str("user_id", userID).Str("channel_id", ch.ID()).Bool("first", first).Msg("チャネルを登録しました")

	if first {
		r.syncPresence(userID)
		for _, hook := range hooks {
			hook(ctx, userID, ch)
		}
	}
	return nil
}

// Unregister は指定したチャネルだけを解除する。同じユーザーの他のチャネルには影響しない。
// 登録されていないチャネルの場合は何もしない。
func (r *Registry) Unregister(userID string, ch Channel) {
	if r == nil {
		return
	}
	r.mu.Lock()
	list := r.channels[userID]
	i := slices.IndexFunc(list, func(c Channel) bool { return c.ID() == ch.ID() })
	if i < 0 {
		r.mu.Unlock()
		return
	}
	list = slices.Delete(slices.Clone(list), i, i+1)
	last := len(list) == 0
	if last {
		delete(r.channels, userID)
	} else {
		r.channels[userID] = list
	}
	r.mu.Unlock()

	r.metrics.channelClosed()
	r.logger.Debug().Str("user_id", userID).Str("channel_id", ch.ID()).Bool("last", last).Msg("チャネルを解除しました")

	if last {
		r.syncPresence(userID)
	}
}

// Deliver はユーザーの全チャネルにイベントを送信し、送信できたチャネル数を返す。
// チャネルが無い場合は何もしない。送信失敗はログに記録するだけでエラーにはしない。
func (r *Registry) Deliver(userID string, name event.Name, payload any) int {
	channels := r.Channels(userID)
	if len(channels) == 0 {
		return 0
	}
	data, err := Encode(name, payload)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Str("event", string(name)).Msg("イベントのエンコードに失敗しました")
		return 0
	}
	delivered := 0
	for _, ch := range channels {
		if err := ch.Send(data); err != nil {
			r.metrics.delivery(name, false)
			r.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("channel_id", ch.ID()).
				Str("event", string(name)).
				Msg("ライブチャネルへの配信に失敗しました")
			continue
		}
		r.metrics.delivery(name, true)
		delivered++
	}
	return delivered
}

// Channels はユーザーの登録済みチャネルのスナップショットを返す。
func (r *Registry) Channels(userID string) []Channel {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.channels[userID])
}

// Online はユーザーがチャネルを1本以上開いているかどうかを返す。
func (r *Registry) Online(userID string) bool {
	return len(r.Channels(userID)) > 0
}

// Users はチャネルを開いているユーザーIDを昇順で返す。
func (r *Registry) Users() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	users := make([]string, 0, len(r.channels))
	for userID := range r.channels {
		users = append(users, userID)
	}
	r.mu.RUnlock()
	slices.Sort(users)
	return users
}

// Close は全チャネルを閉じて登録を破棄する。以降の登録はErrClosedになる。
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := r.channels
	r.channels = make(map[string][]Channel)
	r.mu.Unlock()

	for userID, list := range all {
		for _, ch := range list {
			ch.Close()
			r.metrics.channelClosed()
		}
		r.syncPresence(userID)
	}
	r.logger.Info().Int("users", len(all)).Msg("レジストリを停止しました")
}

// syncPresence は現在の登録状況をオンライン状態の反映先に書き込む。
// presenceMu で直列化するため、最後に書き込まれる値は常にその時点の登録状況と一致する。
func (r *Registry) syncPresence(userID string) {
	if r.presence == nil {
		return
	}
	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	var err error
	if r.Online(userID) {
		err = r.presence.SetOnline(ctx, userID)
	} else {
		err = r.presence.SetOffline(ctx, userID)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("オンライン状態の反映に失敗しました")
	}
}

// Encode はイベントをライブチャネルのワイヤ形式にエンコードする。
func Encode(name event.Name, payload any) ([]byte, error) {
	ev, err := event.New(name, payload)
	if err != nil {
		return nil, err
	}
	data, err := ev.Encode()
	if err != nil {
		return nil, fmt.Errorf("イベント %s のエンコードに失敗: %w", name, err)
	}
	return data, nil
}

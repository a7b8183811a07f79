package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nao1215/courier/pkg/event"
)

// unreadCounter は未読数の取得元。
type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// UnreadSync は未読数を数え直してライブチャネルへ送る。
type UnreadSync struct {
	store  unreadCounter
	live   Deliverer
	logger zerolog.Logger
}

// NewUnreadSync はUnreadSyncを生成する。
func NewUnreadSync(s unreadCounter, live Deliverer, logger zerolog.Logger) *UnreadSync {
	return &UnreadSync{store: s, live: live, logger: logger}
}

// Push は未読数を数え直してunreadCountイベントを送り、数えた値を返す。
// 数え直しの失敗はログに記録してエラーを返す。
func (u *UnreadSync) Push(ctx context.Context, userID string) (int64, error) {
	count, err := u.store.CountUnread(ctx, userID)
	if err != nil {
		u.logger.Warn().Err(err).Str("user_id", userID).Msg("未読数の取得に失敗しました")
		return 0, err
	}
	u.live.Deliver(userID, event.NameUnreadCount, event.UnreadCountData{Count: count})
	return count, nil
}

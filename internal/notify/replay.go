package notify

import (
	"context"

	"github.com/nao1215/courier/internal/registry"
	"github.com/nao1215/courier/pkg/event"
)

// replayLimit は再接続時に再送する未読通知の最大件数。
const replayLimit = 20

// Replay は新しく開いたチャネルに未読通知を新しい順に再送し、続けて未読数を送る。
// registry.Registry.OnFirstRegister に登録して使う。
func (d *Dispatcher) Replay(ctx context.Context, userID string, ch registry.Channel) {
	items, err := d.store.ListUnreadNotifications(ctx, userID, replayLimit)
	if err != nil {
		d.logger.Warn().Err(err).Str("user_id", userID).Msg("未読通知の取得に失敗しました")
		return
	}
	for _, n := range items {
		if !d.sendTo(ch, userID, event.NameNotification, NewDocument(n)) {
			return
		}
	}
	count, err := d.store.CountUnread(ctx, userID)
	if err != nil {
		d.logger.Warn().Err(err).Str("user_id", userID).Msg("未読数の取得に失敗しました")
		return
	}
	d.sendTo(ch, userID, event.NameUnreadCount, event.UnreadCountData{Count: count})
}

func (d *Dispatcher) sendTo(ch registry.Channel, userID string, name event.Name, payload any) bool {
	data, err := registry.Encode(name, payload)
	if err == nil {
		err = ch.Send(data)
	}
	if err != nil {
		d.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("channel_id", ch.ID()).
			Str("event", string(name)).
			Msg("未読通知の再送に失敗しました")
		return false
	}
	return true
}

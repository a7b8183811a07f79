package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/store/db"
)

// NotificationQuery は通知一覧の取得条件。
type NotificationQuery struct {
	// UserID は通知先ユーザー。
	UserID string
	// UnreadOnly がtrueなら未読のみ返す。
	UnreadOnly bool
	// Limit は最大件数。
	Limit int
	// Offset は読み飛ばす件数。
	Offset int
}

// CreateNotification は通知を未読状態で保存する。
func (s *Store) CreateNotification(ctx context.Context, n model.Notification) error {
	f := model.Flatten(n.Kind)
	params := db.CreateNotificationParams{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(f.Type),
		Message:   n.Message,
		OrderID:   f.OrderID,
		ThreadID:  f.ThreadID,
		MessageID: f.MessageID,
		NewStatus: f.NewStatus,
		CreatedAt: formatTime(n.CreatedAt),
	}
	if f.File != nil {
		params.FileFilename, params.FileUrl = f.File.Filename, f.File.URL
	}
	if f.IsOpen != nil {
		params.IsOpen = sql.NullInt64{Int64: boolToInt(*f.IsOpen), Valid: true}
	}
	if err := s.queries.CreateNotification(ctx, params); err != nil {
		return fmt.Errorf("通知の作成に失敗: %w", err)
	}
	return nil
}

// GetNotification は通知を取得する。
func (s *Store) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	row, err := s.queries.GetNotification(ctx, id)
	if err != nil {
		return model.Notification{}, notFound(err, "通知", id)
	}
	return toNotification(row)
}

// ListNotifications は通知を新しい順に返す。2番目の戻り値は条件に一致する総件数。
func (s *Store) ListNotifications(ctx context.Context, q NotificationQuery) ([]model.Notification, int64, error) {
	unreadOnly := boolToInt(q.UnreadOnly)
	rows, err := s.queries.ListNotificationsByUser(ctx, db.ListNotificationsByUserParams{
		UserID:     q.UserID,
		UnreadOnly: unreadOnly,
		Limit:      int64(q.Limit),
		Offset:     int64(q.Offset),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	total, err := s.queries.CountNotificationsByUser(ctx, db.CountNotificationsByUserParams{
		UserID:     q.UserID,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("通知件数の取得に失敗: %w", err)
	}
	notifications := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := toNotification(row)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, total, nil
}

// ListUnreadNotifications は未読通知を新しい順に最大limit件返す。
func (s *Store) ListUnreadNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	items, _, err := s.ListNotifications(ctx, NotificationQuery{UserID: userID, UnreadOnly: true, Limit: limit})
	return items, err
}

// CountUnread はユーザーの未読通知数を数える。
func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := s.queries.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("未読数の取得に失敗: %w", err)
	}
	return n, nil
}

// SetNotificationRead は通知の既読状態を設定する。
func (s *Store) SetNotificationRead(ctx context.Context, id string, isRead bool) error {
	err := s.queries.SetNotificationRead(ctx, db.SetNotificationReadParams{IsRead: boolToInt(isRead), ID: id})
	if err != nil {
		return fmt.Errorf("通知の既読状態の更新に失敗: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead はユーザーの未読通知をすべて既読にし、件数を返す。
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.queries.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("通知の一括既読化に失敗: %w", err)
	}
	return n, nil
}

// MarkOrderNotificationsRead は注文に関するユーザーの未読通知を既読にし、件数を返す。
func (s *Store) MarkOrderNotificationsRead(ctx context.Context, userID, orderID string) (int64, error) {
	n, err := s.queries.MarkOrderNotificationsRead(ctx, db.MarkOrderNotificationsReadParams{
		UserID:  userID,
		OrderID: orderID,
	})
	if err != nil {
		return 0, fmt.Errorf("注文通知の既読化に失敗: %w", err)
	}
	return n, nil
}

func toNotification(row db.Notification) (model.Notification, error) {
	f := model.NotificationFields{
		Type:      model.NotificationType(row.Type),
		OrderID:   row.OrderID,
		ThreadID:  row.ThreadID,
		MessageID: row.MessageID,
		NewStatus: row.NewStatus,
	}
	if row.FileFilename != "" || row.FileUrl != "" {
		f.File = &model.Attachment{Filename: row.FileFilename, URL: row.FileUrl}
	}
	if row.IsOpen.Valid {
		isOpen := row.IsOpen.Int64 == 1
		f.IsOpen = &isOpen
	}
	kind, err := f.Kind()
	if err != nil {
		return model.Notification{}, fmt.Errorf("通知 %s の種別データが不正: %w", row.ID, err)
	}
	return model.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Message:   row.Message,
		IsRead:    row.IsRead == 1,
		CreatedAt: parseTime(row.CreatedAt),
		Kind:      kind,
	}, nil
}

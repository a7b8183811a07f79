// Package event はライブチャネル（WebSocket/SSE）で配信するイベントの
// エンベロープとイベント名を定義する。
package event

import (
	"encoding/json"
	"time"
)

// Name はライブチャネルで送信するイベント名を表す。
type Name string

const (
	// NameNotification は汎用の通知イベント。ペイロードの形状は埋め込まれたtypeで変わる。
	NameNotification Name = "notification"
	// NameUnreadCount は未読通知数の更新イベント。
	NameUnreadCount Name = "unreadCount"

	// NameStatusChange はstatus_change通知の専用イベント。
	NameStatusChange Name = "statusChange"
	// NameOrderStatusChange はorder_status_change通知の専用イベント。
	NameOrderStatusChange Name = "orderStatusChange"
	// NameThreadStatusChange はthread_status_change通知の専用イベント。
	NameThreadStatusChange Name = "threadStatusChange"
	// NameNewMessage はnew_message通知の専用イベント。
	NameNewMessage Name = "newMessage"
	// NameFileAdded はfile_added通知の専用イベント。
	NameFileAdded Name = "fileAdded"
	// NameNewAdminComment はnew_admin_comment通知の専用イベント。
	NameNewAdminComment Name = "newAdminComment"
)

// Event はライブチャネルで送信する1件のイベント。
// WebSocketではテキストフレーム、SSEでは data フレームとしてそのままJSONで送る。
type Event struct {
	// ID はイベントの一意識別子（UUID）。SSEの再接続時の目印にも使う。
	ID string `json:"id"`
	// Name はイベント名。
	Name Name `json:"event"`
	// Data はイベント固有のペイロード（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントの生成日時。
	CreatedAt time.Time `json:"createdAt"`
}

// UnreadCountData はunreadCountイベントのペイロード。
type UnreadCountData struct {
	// Count は未読通知数。
	Count int64 `json:"count"`
}

package notify

import (
	"time"

	"github.com/nao1215/courier/internal/model"
)

// Document は通知の汎用表現。notificationイベントとREST APIのレスポンスで使う。
type Document struct {
	ID        string                 `json:"id"`
	User      string                 `json:"user"`
	Type      model.NotificationType `json:"type"`
	Message   string                 `json:"message"`
	IsRead    bool                   `json:"isRead"`
	CreatedAt time.Time              `json:"createdAt"`
	Order     string                 `json:"order,omitempty"`
	Thread    string                 `json:"thread,omitempty"`
	File      *model.Attachment      `json:"file,omitempty"`
	NewStatus string                 `json:"newStatus,omitempty"`
	IsOpen    *bool                  `json:"isOpen,omitempty"`
}

// NewDocument は通知を汎用表現に変換する。
func NewDocument(n model.Notification) Document {
	f := model.Flatten(n.Kind)
	return Document{
		ID:        n.ID,
		User:      n.UserID,
		Type:      f.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		Order:     f.OrderID,
		Thread:    f.ThreadID,
		File:      f.File,
		NewStatus: f.NewStatus,
		IsOpen:    f.IsOpen,
	}
}

// StatusChangePayload はstatusChangeイベントのペイロード。
type StatusChangePayload struct {
	NotificationID string `json:"notificationId"`
	OrderID        string `json:"orderId"`
	Message        string `json:"message"`
	OrderURL       string `json:"orderUrl"`
}

// OrderStatusChangePayload はorderStatusChangeイベントのペイロード。
type OrderStatusChangePayload struct {
	NotificationID string `json:"notificationId"`
	OrderID        string `json:"orderId"`
	NewStatus      string `json:"newStatus"`
	Message        string `json:"message"`
	OrderURL       string `json:"orderUrl"`
}

// ThreadStatusChangePayload はthreadStatusChangeイベントのペイロード。
type ThreadStatusChangePayload struct {
	NotificationID string `json:"notificationId"`
	ThreadID       string `json:"threadId"`
	IsOpen         bool   `json:"isOpen"`
	ThreadURL      string `json:"threadUrl"`
	Message        string `json:"message"`
}

// NewMessagePayload はnewMessageイベントのペイロード。
type NewMessagePayload struct {
	NotificationID string `json:"notificationId"`
	ThreadID       string `json:"threadId"`
	MessageID      string `json:"messageId"`
	Message        string `json:"message"`
	ThreadURL      string `json:"threadUrl"`
}

// FileAddedPayload はfileAddedイベントのペイロード。
type FileAddedPayload struct {
	NotificationID string           `json:"notificationId"`
	OrderID        string           `json:"orderId"`
	File           model.Attachment `json:"file"`
	Message        string           `json:"message"`
}

// NewAdminCommentPayload はnewAdminCommentイベントのペイロード。
type NewAdminCommentPayload struct {
	NotificationID string `json:"notificationId"`
	OrderID        string `json:"orderId"`
	Message        string `json:"message"`
	OrderURL       string `json:"orderUrl"`
}

package messaging

import (
	"time"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/notify"
)

// threadResponse はスレッドのJSONレスポンス構造。
type threadResponse struct {
	// ID はスレッドの一意識別子。
	ID string `json:"id"`
	// Subject は件名。
	Subject string `json:"subject"`
	// Participants は参加者のユーザーID。
	Participants []string `json:"participants"`
	// Department は問い合わせ先部門。
	Department model.Department `json:"department"`
	// IsOpen はスレッドが開いているかどうか。
	IsOpen bool `json:"isOpen"`
	// LastMessage は最新メッセージのID。
	LastMessage string `json:"lastMessage,omitempty"`
	// LastMessageDate は最新メッセージの作成日時。
	LastMessageDate *time.Time `json:"lastMessageDate,omitempty"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"createdAt"`
}

// messageResponse はメッセージのJSONレスポンス構造。
type messageResponse struct {
	ID          string             `json:"id"`
	ThreadID    string             `json:"threadId"`
	Sender      string             `json:"sender"`
	Recipient   string             `json:"recipient"`
	Content     string             `json:"content"`
	Attachments []model.Attachment `json:"attachments"`
	IsRead      bool               `json:"isRead"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// threadDetailResponse はメッセージ付きスレッドのJSONレスポンス構造。
type threadDetailResponse struct {
	threadResponse
	Messages []messageResponse `json:"messages"`
}

// notificationPage は通知一覧のJSONレスポンス構造。
type notificationPage struct {
	Items []notify.Document `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// toThreadResponse はスレッドをJSONレスポンスに変換する。
func toThreadResponse(t model.Thread) threadResponse {
	r := threadResponse{
		ID:           t.ID,
		Subject:      t.Subject,
		Participants: t.Participants,
		Department:   t.Department,
		IsOpen:       t.IsOpen,
		LastMessage:  t.LastMessageID,
		CreatedAt:    t.CreatedAt,
	}
	if !t.LastMessageDate.IsZero() {
		d := t.LastMessageDate
		r.LastMessageDate = &d
	}
	return r
}

// toThreadResponses はスレッドのスライスをJSONレスポンスのスライスに変換する。
func toThreadResponses(threads []model.Thread) []threadResponse {
	responses := make([]threadResponse, 0, len(threads))
	for _, t := range threads {
		responses = append(responses, toThreadResponse(t))
	}
	return responses
}

// toMessageResponse はメッセージをJSONレスポンスに変換する。
func toMessageResponse(m model.Message) messageResponse {
	attachments := m.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	return messageResponse{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		Sender:      m.SenderID,
		Recipient:   m.RecipientID,
		Content:     m.Content,
		Attachments: attachments,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}

// toDocuments は通知のスライスを汎用表現のスライスに変換する。
func toDocuments(notifications []model.Notification) []notify.Document {
	docs := make([]notify.Document, 0, len(notifications))
	for _, n := range notifications {
		docs = append(docs, notify.NewDocument(n))
	}
	return docs
}

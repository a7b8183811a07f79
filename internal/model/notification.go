package model

import (
	"fmt"
	"time"
)

// NotificationType は通知の種別（閉じた列挙）。
type NotificationType string

const (
	// TypeStatusChange は注文ステータスの汎用的な変更通知。
	TypeStatusChange NotificationType = "status_change"
	// TypeFileAdded は注文へのファイル追加通知。
	TypeFileAdded NotificationType = "file_added"
	// TypeThreadStatusChange はスレッドの開閉状態の変更通知。
	TypeThreadStatusChange NotificationType = "thread_status_change"
	// TypeNewMessage はスレッドへの新着メッセージ通知。
	TypeNewMessage NotificationType = "new_message"
	// TypeOrderStatusChange は注文ステータスの変更通知（新しいステータスを伴う）。
	TypeOrderStatusChange NotificationType = "order_status_change"
	// TypeNewAdminComment は注文への管理者コメント通知。
	TypeNewAdminComment NotificationType = "new_admin_comment"
)

// NotificationTypes は全通知種別。
var NotificationTypes = []NotificationType{
	TypeStatusChange,
	TypeFileAdded,
	TypeThreadStatusChange,
	TypeNewMessage,
	TypeOrderStatusChange,
	TypeNewAdminComment,
}

// Kind は通知種別ごとの固有データ。実装は本パッケージの型に限られる。
type Kind interface {
	// Type は通知種別を返す。
	Type() NotificationType
	// Validate は種別ごとの必須項目を検証する。
	Validate() error
	isKind()
}

// StatusChange はstatus_change通知のデータ。
type StatusChange struct {
	// OrderID は対象注文のID。
	OrderID string
}

// FileAdded はfile_added通知のデータ。
type FileAdded struct {
	// OrderID は対象注文のID。
	OrderID string
	// File は追加されたファイル。
	File Attachment
}

// ThreadStatusChange はthread_status_change通知のデータ。
type ThreadStatusChange struct {
	// ThreadID は対象スレッドのID。
	ThreadID string
	// IsOpen は変更後の開閉状態。
	IsOpen bool
}

// NewMessage はnew_message通知のデータ。
type NewMessage struct {
	// ThreadID は対象スレッドのID。
	ThreadID string
	// MessageID は新着メッセージのID。
	MessageID string
}

// OrderStatusChange はorder_status_change通知のデータ。
type OrderStatusChange struct {
	// OrderID は対象注文のID。
	OrderID string
	// NewStatus は変更後の注文ステータス。
	NewStatus string
}

// NewAdminComment はnew_admin_comment通知のデータ。
type NewAdminComment struct {
	// OrderID は対象注文のID。
	OrderID string
}

func (StatusChange) Type() NotificationType       { return TypeStatusChange }
func (FileAdded) Type() NotificationType          { return TypeFileAdded }
func (ThreadStatusChange) Type() NotificationType { return TypeThreadStatusChange }
func (NewMessage) Type() NotificationType         { return TypeNewMessage }
func (OrderStatusChange) Type() NotificationType  { return TypeOrderStatusChange }
func (NewAdminComment) Type() NotificationType    { return TypeNewAdminComment }

func (StatusChange) isKind()       {}
func (FileAdded) isKind()          {}
func (ThreadStatusChange) isKind() {}
func (NewMessage) isKind()         {}
func (OrderStatusChange) isKind()  {}
func (NewAdminComment) isKind()    {}

// Validate はorderが指定されていることを検証する。
func (k StatusChange) Validate() error { return requireOrder(k.OrderID) }

// Validate はorderとファイルが指定されていることを検証する。
func (k FileAdded) Validate() error {
	if err := requireOrder(k.OrderID); err != nil {
		return err
	}
	if k.File.Filename == "" || k.File.URL == "" {
		return fmt.Errorf("%w: file_addedにはfileが必要です", ErrValidation)
	}
	return nil
}

// Validate はthreadが指定されていることを検証する。
func (k ThreadStatusChange) Validate() error { return requireThread(k.ThreadID) }

// Validate はthreadが指定されていることを検証する。
func (k NewMessage) Validate() error { return requireThread(k.ThreadID) }

// Validate はorderとnewStatusが指定されていることを検証する。
func (k OrderStatusChange) Validate() error {
	if err := requireOrder(k.OrderID); err != nil {
		return err
	}
	if k.NewStatus == "" {
		return fmt.Errorf("%w: order_status_changeにはnewStatusが必要です", ErrValidation)
	}
	return nil
}

// Validate はorderが指定されていることを検証する。
func (k NewAdminComment) Validate() error { return requireOrder(k.OrderID) }

func requireOrder(orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: orderは必須です", ErrValidation)
	}
	return nil
}

func requireThread(threadID string) error {
	if threadID == "" {
		return fmt.Errorf("%w: threadは必須です", ErrValidation)
	}
	return nil
}

// Notification はユーザー宛ての通知。既読状態はメッセージとは独立して管理する。
type Notification struct {
	// ID は通知の一意識別子。
	ID string
	// UserID は通知先のユーザーID。
	UserID string
	// Message は人が読むための通知文。
	Message string
	// IsRead は既読状態。
	IsRead bool
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// Kind は種別ごとの固有データ。
	Kind Kind
}

// Type は通知種別を返す。
func (n Notification) Type() NotificationType {
	return n.Kind.Type()
}

// NotificationFields は通知の種別固有データをフラットに並べた表現。
// 永続化とHTTPの入出力で使用し、ドメイン内では Kind に変換して扱う。
type NotificationFields struct {
	// Type は通知種別。
	Type NotificationType
	// OrderID は注文ID。
	OrderID string
	// ThreadID はスレッドID。
	ThreadID string
	// MessageID はメッセージID。
	MessageID string
	// File は添付ファイル。
	File *Attachment
	// NewStatus は新しい注文ステータス。
	NewStatus string
	// IsOpen はスレッドの開閉状態。
	IsOpen *bool
}

// Flatten はKindをフラットな表現に変換する。
func Flatten(k Kind) NotificationFields {
	f := NotificationFields{Type: k.Type()}
	switch v := k.(type) {
	case StatusChange:
		f.OrderID = v.OrderID
	case FileAdded:
		file := v.File
		f.OrderID, f.File = v.OrderID, &file
	case ThreadStatusChange:
		isOpen := v.IsOpen
		f.ThreadID, f.IsOpen = v.ThreadID, &isOpen
	case NewMessage:
		f.ThreadID, f.MessageID = v.ThreadID, v.MessageID
	case OrderStatusChange:
		f.OrderID, f.NewStatus = v.OrderID, v.NewStatus
	case NewAdminComment:
		f.OrderID = v.OrderID
	}
	return f
}

// Kind はフラットな表現を種別ごとの型に変換し、必須項目を検証する。
func (f NotificationFields) Kind() (Kind, error) {
	var k Kind
	switch f.Type {
	case TypeStatusChange:
		k = StatusChange{OrderID: f.OrderID}
	case TypeFileAdded:
		var file Attachment
		if f.File != nil {
			file = *f.File
		}
		k = FileAdded{OrderID: f.OrderID, File: file}
	case TypeThreadStatusChange:
		k = ThreadStatusChange{ThreadID: f.ThreadID, IsOpen: f.IsOpen != nil && *f.IsOpen}
	case TypeNewMessage:
		k = NewMessage{ThreadID: f.ThreadID, MessageID: f.MessageID}
	case TypeOrderStatusChange:
		k = OrderStatusChange{OrderID: f.OrderID, NewStatus: f.NewStatus}
	case TypeNewAdminComment:
		k = NewAdminComment{OrderID: f.OrderID}
	case "":
		return nil, fmt.Errorf("%w: typeは必須です", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: 不明な通知種別です: %q (指定できる種別: %v)", ErrValidation, f.Type, NotificationTypes)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

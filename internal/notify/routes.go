package notify

import (
	"fmt"
	"slices"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/pkg/event"
)

// Variant は通知種別ごとに送信するペイロード形状の名前。
type Variant string

const (
	// VariantNotification は汎用のnotificationイベント。
	VariantNotification Variant = "notification"
	// VariantStatusEvent はstatusChangeイベント。
	VariantStatusEvent Variant = "status_event"
	// VariantFileEvent はfileAddedイベント。
	VariantFileEvent Variant = "file_event"
	// VariantThreadEvent はthreadStatusChangeイベント。
	VariantThreadEvent Variant = "thread_event"
	// VariantMessageEvent はnewMessageイベント。
	VariantMessageEvent Variant = "message_event"
	// VariantOrderEvent はorderStatusChangeイベント。
	VariantOrderEvent Variant = "order_event"
	// VariantCommentEvent はnewAdminCommentイベント。
	VariantCommentEvent Variant = "comment_event"
)

// route は配信表の1行。
type route struct {
	variant Variant
	name    event.Name
	build   func(n model.Notification, l Links) any
}

var genericRoute = route{
	variant: VariantNotification,
	name:    event.NameNotification,
	build:   func(n model.Notification, _ Links) any { return NewDocument(n) },
}

// dispatchTable は通知種別ごとに送信するイベント。既定ではすべての種別で汎用イベントも送る。
// file_added と new_admin_comment は2つの形状のどちらが正か決まっていないため、
// 既定では両方を送り、設定で絞り込めるようにしている。絞り込んだ場合は汎用イベントも
// 選択肢の1つとして扱い、選ばれなければ送らない。
var dispatchTable = map[model.NotificationType][]route{
	model.TypeStatusChange: {genericRoute, {
		variant: VariantStatusEvent,
		name:    event.NameStatusChange,
		build: func(n model.Notification, l Links) any {
			k := n.Kind.(model.StatusChange)
			return StatusChangePayload{NotificationID: n.ID, OrderID: k.OrderID, Message: n.Message, OrderURL: l.Order(k.OrderID)}
		},
	}},
	model.TypeFileAdded: {genericRoute, {
		variant: VariantFileEvent,
		name:    event.NameFileAdded,
		build: func(n model.Notification, _ Links) any {
			k := n.Kind.(model.FileAdded)
			return FileAddedPayload{NotificationID: n.ID, OrderID: k.OrderID, File: k.File, Message: n.Message}
		},
	}},
	model.TypeThreadStatusChange: {genericRoute, {
		variant: VariantThreadEvent,
		name:    event.NameThreadStatusChange,
		build: func(n model.Notification, l Links) any {
			k := n.Kind.(model.ThreadStatusChange)
			return ThreadStatusChangePayload{NotificationID: n.ID, ThreadID: k.ThreadID, IsOpen: k.IsOpen, ThreadURL: l.Thread(k.ThreadID), Message: n.Message}
		},
	}},
	model.TypeNewMessage: {genericRoute, {
		variant: VariantMessageEvent,
		name:    event.NameNewMessage,
		build: func(n model.Notification, l Links) any {
			k := n.Kind.(model.NewMessage)
			return NewMessagePayload{NotificationID: n.ID, ThreadID: k.ThreadID, MessageID: k.MessageID, Message: n.Message, ThreadURL: l.Thread(k.ThreadID)}
		},
	}},
	model.TypeOrderStatusChange: {genericRoute, {
		variant: VariantOrderEvent,
		name:    event.NameOrderStatusChange,
		build: func(n model.Notification, l Links) any {
			k := n.Kind.(model.OrderStatusChange)
			return OrderStatusChangePayload{NotificationID: n.ID, OrderID: k.OrderID, NewStatus: k.NewStatus, Message: n.Message, OrderURL: l.Order(k.OrderID)}
		},
	}},
	model.TypeNewAdminComment: {genericRoute, {
		variant: VariantCommentEvent,
		name:    event.NameNewAdminComment,
		build: func(n model.Notification, l Links) any {
			k := n.Kind.(model.NewAdminComment)
			return NewAdminCommentPayload{NotificationID: n.ID, OrderID: k.OrderID, Message: n.Message, OrderURL: l.Order(k.OrderID)}
		},
	}},
}

// Routes は通知種別ごとに実際に送信するイベントの一覧。
type Routes struct {
	table map[model.NotificationType][]route
}

// NewRoutes は配信表から送信するバリアントを選んだRoutesを生成する。
// selectionに含まれない種別は配信表のすべてのバリアントを送る。
// 種別に存在しないバリアントや空の選択はエラーになる。
func NewRoutes(selection map[model.NotificationType][]Variant) (Routes, error) {
	table := make(map[model.NotificationType][]route, len(dispatchTable))
	for typ, routes := range dispatchTable {
		table[typ] = routes
	}
	for typ, variants := range selection {
		routes, ok := dispatchTable[typ]
		if !ok {
			return Routes{}, fmt.Errorf("%w: 不明な通知種別です: %q", model.ErrValidation, typ)
		}
		if len(variants) == 0 {
			continue
		}
		var selected []route
		for _, v := range variants {
			i := slices.IndexFunc(routes, func(r route) bool { return r.variant == v })
			if i < 0 {
				return Routes{}, fmt.Errorf("%w: %s に %q のバリアントはありません", model.ErrValidation, typ, v)
			}
			selected = append(selected, routes[i])
		}
		table[typ] = selected
	}
	return Routes{table: table}, nil
}

// DefaultRoutes はすべてのバリアントを送るRoutesを返す。
func DefaultRoutes() Routes {
	r, _ := NewRoutes(nil)
	return r
}

// Variants は種別で送信するバリアント名を返す。
func (r Routes) Variants(typ model.NotificationType) []Variant {
	var out []Variant
	for _, rt := range r.table[typ] {
		out = append(out, rt.variant)
	}
	return out
}

// outbound は送信する1件のイベント。
type outbound struct {
	name    event.Name
	payload any
}

// events は通知から送信するイベントを組み立てる。
func (r Routes) events(n model.Notification, l Links) []outbound {
	routes := r.table[n.Type()]
	out := make([]outbound, 0, len(routes))
	for _, rt := range routes {
		out = append(out, outbound{name: rt.name, payload: rt.build(n, l)})
	}
	return out
}

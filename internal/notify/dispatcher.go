package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/escalation"
	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/store"
	"github.com/nao1215/courier/pkg/event"
)

// Store は通知の保存先。
type Store interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	GetNotification(ctx context.Context, id string) (model.Notification, error)
	ListUnreadNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	SetNotificationRead(ctx context.Context, id string, isRead bool) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	MarkOrderNotificationsRead(ctx context.Context, userID, orderID string) (int64, error)
}

var _ Store = (*store.Store)(nil)

// Deliverer はライブチャネルへの配信先。
type Deliverer interface {
	Deliver(userID string, name event.Name, payload any) int
}

type nopDeliverer struct{}

func (nopDeliverer) Deliver(string, event.Name, any) int { return 0 }

// Intent は作成する通知の内容。
type Intent struct {
	// UserID は通知先のユーザー。必須。
	UserID string
	// Message は通知文。空の場合は種別ごとの既定の文を使う。
	Message string
	// Kind は種別ごとのデータ。必須。
	Kind model.Kind
}

// Option はDispatcherの設定を変更する。
type Option func(*Dispatcher)

// WithRoutes は配信表を設定する。
func WithRoutes(r Routes) Option {
	return func(d *Dispatcher) { d.routes = r }
}

// WithLinks はディープリンクの組み立て方を設定する。
func WithLinks(l Links) Option {
	return func(d *Dispatcher) { d.links = l }
}

// WithEscalator は注文に関する通知のメール送信先を設定する。
func WithEscalator(e *escalation.Escalator) Option {
	return func(d *Dispatcher) { d.escalator = e }
}

// WithMetrics は種別ごとの通知作成数を記録するメトリクスをregに登録する。
func WithMetrics(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		d.dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "notify",
			Name:      "dispatched_total",
			Help:      "Notifications created by type.",
		}, []string{"type"})
		reg.MustRegister(d.dispatched)
	}
}

// WithClock は現在時刻の取得方法を設定する。
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher は通知を保存し、ライブチャネルへ配信する。
type Dispatcher struct {
	store      Store
	live       Deliverer
	unread     *UnreadSync
	routes     Routes
	links      Links
	escalator  *escalation.Escalator
	dispatched *prometheus.CounterVec
	now        func() time.Time
	logger     zerolog.Logger
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(s Store, live Deliverer, logger zerolog.Logger, opts ...Option) *Dispatcher {
	logger = logger.With().Str("component", "notify").Logger()
	if live == nil {
		live = nopDeliverer{}
	}
	d := &Dispatcher{
		store:  s,
		live:   live,
		unread: NewUnreadSync(s, live, logger),
		routes: DefaultRoutes(),
		links:  NewLinks(""),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Unread は未読数の同期処理を返す。
func (d *Dispatcher) Unread() *UnreadSync {
	return d.unread
}

// Dispatch は通知を未読で保存し、ライブチャネルへ配信して未読数を送り直す。
// 保存に失敗した場合だけエラーを返す。配信の失敗はログに記録する。
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) (model.Notification, error) {
	if in.UserID == "" {
		return model.Notification{}, fmt.Errorf("%w: userは必須です", model.ErrValidation)
	}
	if in.Kind == nil {
		return model.Notification{}, fmt.Errorf("%w: typeは必須です", model.ErrValidation)
	}
	if err := in.Kind.Validate(); err != nil {
		return model.Notification{}, err
	}

	n := model.Notification{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Message:   in.Message,
		CreatedAt: d.now().UTC(),
		Kind:      in.Kind,
	}
	if n.Message == "" {
		n.Message = DefaultMessage(in.Kind)
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return model.Notification{}, err
	}
	if d.dispatched != nil {
		d.dispatched.WithLabelValues(string(n.Type())).Inc()
	}

	d.push(n)
	// ライブチャネルの有無にかかわらず未読数は必ず送り直す
	_, _ = d.unread.Push(ctx, n.UserID)
	d.escalate(ctx, n)

	d.logger.Debug().
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Str("type", string(n.Type())).
		Msg("通知を配信しました")
	return n, nil
}

// push は配信表に従ってイベントを送る。送信中のパニックもログに記録して握りつぶす。
func (d *Dispatcher) push(n model.Notification) {
	for _, ev := range d.routes.events(n, d.links) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Warn().
						Str("user_id", n.UserID).
						Str("event", string(ev.name)).
						Interface("panic", r).
						Msg("ライブ配信中にパニックが発生しました")
				}
			}()
			d.live.Deliver(n.UserID, ev.name, ev.payload)
		}()
	}
}

// escalate は注文に関する通知をメールでも知らせる。スレッドに関するメールは会話エンジンが送る。
func (d *Dispatcher) escalate(ctx context.Context, n model.Notification) {
	orderID := model.Flatten(n.Kind).OrderID
	if orderID == "" {
		return
	}
	d.escalator.Notify(ctx, escalation.Notice{
		UserID:   n.UserID,
		Template: escalation.TemplateOrderUpdate,
		Heading:  orderHeading(n.Kind),
		Subject:  orderID,
		Preview:  n.Message,
		Link:     d.links.Order(orderID),
	})
}

// ToggleRead は自分宛ての通知の既読状態を反転し、未読数を送り直す。
func (d *Dispatcher) ToggleRead(ctx context.Context, userID, notificationID string) (model.Notification, error) {
	n, err := d.store.GetNotification(ctx, notificationID)
	if err != nil {
		return model.Notification{}, err
	}
	if n.UserID != userID {
		return model.Notification{}, fmt.Errorf("%w: 他のユーザーの通知は変更できません", model.ErrAuthorization)
	}
	n.IsRead = !n.IsRead
	if err := d.store.SetNotificationRead(ctx, n.ID, n.IsRead); err != nil {
		return model.Notification{}, err
	}
	_, _ = d.unread.Push(ctx, userID)
	return n, nil
}

// MarkAllRead はユーザーの通知をすべて既読にし、未読数を送り直す。
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := d.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	_, _ = d.unread.Push(ctx, userID)
	return n, nil
}

// MarkOrderRead はユーザーの注文に関する通知をすべて既読にし、未読数を送り直す。
func (d *Dispatcher) MarkOrderRead(ctx context.Context, userID, orderID string) (int64, error) {
	if orderID == "" {
		return 0, fmt.Errorf("%w: orderは必須です", model.ErrValidation)
	}
	n, err := d.store.MarkOrderNotificationsRead(ctx, userID, orderID)
	if err != nil {
		return 0, err
	}
	_, _ = d.unread.Push(ctx, userID)
	return n, nil
}

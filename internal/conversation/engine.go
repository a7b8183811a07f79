package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/account"
	"github.com/nao1215/courier/internal/escalation"
	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/notify"
	"github.com/nao1215/courier/internal/storage"
	"github.com/nao1215/courier/internal/store"
)

// Store はスレッドとメッセージの保存先。
type Store interface {
	CreateThreadWithMessage(ctx context.Context, thread model.Thread, msg model.Message) error
	AppendMessage(ctx context.Context, msg model.Message) error
	GetThread(ctx context.Context, id string) (model.Thread, error)
	ListThreads(ctx context.Context, f store.ThreadFilter) ([]model.Thread, error)
	ToggleThreadOpen(ctx context.Context, id string) (bool, error)
	ListMessages(ctx context.Context, threadID string) ([]model.Message, error)
	GetMessage(ctx context.Context, id string) (model.Message, error)
	MarkMessageRead(ctx context.Context, id, recipientID string) (bool, error)
	MarkThreadRead(ctx context.Context, threadID, recipientID string) (int64, error)
}

var _ Store = (*store.Store)(nil)

// Notifier は通知の作成と配信を行う。
type Notifier interface {
	Dispatch(ctx context.Context, in notify.Intent) (model.Notification, error)
}

// Option はEngineの設定を変更する。
type Option func(*Engine)

// WithDirectory はユーザー情報の参照先を設定する。
func WithDirectory(d account.Directory) Option {
	return func(e *Engine) { e.directory = d }
}

// WithUploader は添付ファイルのアップロード先を設定する。
func WithUploader(u storage.Uploader) Option {
	return func(e *Engine) { e.uploader = u }
}

// WithEscalator はメールの送信先を設定する。
func WithEscalator(esc *escalation.Escalator) Option {
	return func(e *Engine) { e.escalator = esc }
}

// WithLinks はディープリンクの組み立て方を設定する。
func WithLinks(l notify.Links) Option {
	return func(e *Engine) { e.links = l }
}

// WithAdminEmail は管理者宛てスレッドのメール送信先を設定する。
func WithAdminEmail(addr string) Option {
	return func(e *Engine) { e.adminEmail = addr }
}

// WithClock は現在時刻の取得方法を設定する。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine はスレッドとメッセージの操作を提供する。
type Engine struct {
	store      Store
	notifier   Notifier
	directory  account.Directory
	uploader   storage.Uploader
	escalator  *escalation.Escalator
	links      notify.Links
	adminEmail string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewEngine はEngineを生成する。
func NewEngine(s Store, n Notifier, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		notifier: n,
		links:    notify.NewLinks(""),
		now:      time.Now,
		logger:   logger.With().Str("component", "conversation").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Viewer は操作を行うユーザー。
type Viewer struct {
	// ID はユーザーID。
	ID string
	// Admin は管理者かどうか。
	Admin bool
}

// CreateThreadInput はスレッド作成の入力。
type CreateThreadInput struct {
	// Subject は件名。
	Subject string
	// InitiatorID は問い合わせを始めたユーザー。
	InitiatorID string
	// RecipientID は相手のユーザー。空の場合は部門の窓口になる。
	RecipientID string
	// Department は問い合わせ先部門。
	Department string
	// Content は最初のメッセージの本文。
	Content string
	// Attachments は最初のメッセージの添付ファイル。
	Attachments []storage.Upload
}

// CreateThread はスレッドを最初のメッセージ付きで作成し、相手に通知する。
func (e *Engine) CreateThread(ctx context.Context, in CreateThreadInput) (model.Thread, model.Message, error) {
	dept, err := model.ParseDepartment(in.Department)
	if err != nil {
		return model.Thread{}, model.Message{}, err
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return model.Thread{}, model.Message{}, fmt.Errorf("%w: subjectは必須です", model.ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return model.Thread{}, model.Message{}, fmt.Errorf("%w: contentは必須です", model.ErrValidation)
	}
	if in.InitiatorID == "" {
		return model.Thread{}, model.Message{}, fmt.Errorf("%w: 送信者が不明です", model.ErrAuthentication)
	}

	recipient, err := e.resolveRecipient(ctx, in.RecipientID, dept)
	if err != nil {
		return model.Thread{}, model.Message{}, err
	}
	if recipient.ID == in.InitiatorID {
		return model.Thread{}, model.Message{}, fmt.Errorf("%w: 自分自身とのスレッドは作成できません", model.ErrBusinessRule)
	}

	attachments := e.uploadAll(ctx, in.Attachments)
	now := e.now().UTC()
	thread := model.Thread{
		ID:           uuid.New().String(),
		Subject:      subject,
		Participants: []string{in.InitiatorID, recipient.ID},
		Department:   dept,
		IsOpen:       true,
		CreatedAt:    now,
	}
	msg := model.Message{
		ID:          uuid.New().String(),
		ThreadID:    thread.ID,
		SenderID:    in.InitiatorID,
		RecipientID: recipient.ID,
		Content:     in.Content,
		Attachments: attachments,
		CreatedAt:   now,
	}
	if err := e.store.CreateThreadWithMessage(ctx, thread, msg); err != nil {
		return model.Thread{}, model.Message{}, err
	}
	thread.LastMessageID, thread.LastMessageDate = msg.ID, msg.CreatedAt

	e.notifyNewMessage(ctx, thread, msg, recipient.ID)
	e.escalateNewThread(ctx, thread, msg, recipient, e.senderName(ctx, in.InitiatorID))

	e.logger.Info().
		Str("thread_id", thread.ID).
		Str("department", string(dept)).
		Str("initiator_id", in.InitiatorID).
		Str("recipient_id", recipient.ID).
		Msg("スレッドを作成しました")
	return thread, msg, nil
}

// resolveRecipient は宛先ユーザーを決める。IDが空なら部門の窓口を使う。
// IDが指定されている場合、ユーザー情報の取得に失敗してもIDだけで続行する。
func (e *Engine) resolveRecipient(ctx context.Context, recipientID string, dept model.Department) (account.User, error) {
	if recipientID == "" {
		if e.directory == nil {
			return account.User{}, fmt.Errorf("%w: recipientIdは必須です", model.ErrValidation)
		}
		u, err := e.directory.DepartmentContact(ctx, dept)
		if err != nil {
			return account.User{}, fmt.Errorf("%w: 部門 %s の窓口を解決できません: %v", model.ErrValidation, dept, err)
		}
		return u, nil
	}
	if e.directory != nil {
		u, err := e.directory.Lookup(ctx, recipientID)
		if err == nil {
			return u, nil
		}
		e.logger.Warn().Err(err).Str("user_id", recipientID).Msg("宛先ユーザー情報の取得に失敗しました")
	}
	return account.User{ID: recipientID}, nil
}

// AddMessageInput はメッセージ送信の入力。
type AddMessageInput struct {
	// ThreadID は送信先スレッド。
	ThreadID string
	// SenderID は送信者。
	SenderID string
	// Content は本文。
	Content string
	// Attachments は添付ファイル。
	Attachments []storage.Upload
}

// AddMessage はスレッドにメッセージを追加し、送信者以外の参加者全員に通知する。
// スレッドが閉じていても送信できる。
func (e *Engine) AddMessage(ctx context.Context, in AddMessageInput) (model.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return model.Message{}, fmt.Errorf("%w: contentは必須です", model.ErrValidation)
	}
	thread, err := e.store.GetThread(ctx, in.ThreadID)
	if err != nil {
		return model.Message{}, err
	}
	if !thread.HasParticipant(in.SenderID) {
		return model.Message{}, fmt.Errorf("%w: スレッドの参加者ではありません", model.ErrAuthorization)
	}
	others := thread.OtherParticipants(in.SenderID)
	if len(others) == 0 {
		return model.Message{}, fmt.Errorf("%w: 送信者以外の参加者がいません", model.ErrBusinessRule)
	}

	attachments := e.uploadAll(ctx, in.Attachments)
	// 最新メッセージ日時を巻き戻さないよう、時計が戻っても直前のメッセージより前にはしない
	createdAt := e.now().UTC()
	if createdAt.Before(thread.LastMessageDate) {
		createdAt = thread.LastMessageDate
	}
	msg := model.Message{
		ID:          uuid.New().String(),
		ThreadID:    thread.ID,
		SenderID:    in.SenderID,
		RecipientID: others[0],
		Content:     in.Content,
		Attachments: attachments,
		CreatedAt:   createdAt,
	}
	if err := e.store.AppendMessage(ctx, msg); err != nil {
		return model.Message{}, err
	}

	sender := e.senderName(ctx, in.SenderID)
	for _, userID := range others {
		e.notifyNewMessage(ctx, thread, msg, userID)
		e.escalator.Notify(ctx, escalation.Notice{
			UserID:   userID,
			Template: escalation.TemplateThreadMessage,
			Heading:  "新しいメッセージが届きました",
			Subject:  thread.Subject,
			Sender:   sender,
			Preview:  msg.Content,
			Link:     e.links.Thread(thread.ID),
		})
	}
	return msg, nil
}

// ThreadDetail はスレッドとそのメッセージ。
type ThreadDetail struct {
	Thread   model.Thread
	Messages []model.Message
}

// GetThread はスレッドをメッセージ付きで返す。閲覧者宛ての未読メッセージは既読になる。
func (e *Engine) GetThread(ctx context.Context, viewer Viewer, threadID string) (ThreadDetail, error) {
	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return ThreadDetail{}, err
	}
	if !viewer.Admin && !thread.HasParticipant(viewer.ID) {
		return ThreadDetail{}, fmt.Errorf("%w: スレッドの参加者ではありません", model.ErrAuthorization)
	}
	if _, err := e.store.MarkThreadRead(ctx, thread.ID, viewer.ID); err != nil {
		return ThreadDetail{}, err
	}
	messages, err := e.store.ListMessages(ctx, thread.ID)
	if err != nil {
		return ThreadDetail{}, err
	}
	return ThreadDetail{Thread: thread, Messages: messages}, nil
}

// ListThreads はユーザーが参加しているスレッドを返す。
func (e *Engine) ListThreads(ctx context.Context, f store.ThreadFilter) ([]model.Thread, error) {
	if f.Department != "" {
		if _, err := model.ParseDepartment(string(f.Department)); err != nil {
			return nil, err
		}
	}
	return e.store.ListThreads(ctx, f)
}

// GetMessage はメッセージを返す。受信者が初めて開いた場合は既読になる。
func (e *Engine) GetMessage(ctx context.Context, viewer Viewer, messageID string) (model.Message, error) {
	msg, err := e.store.GetMessage(ctx, messageID)
	if err != nil {
		return model.Message{}, err
	}
	if !viewer.Admin && viewer.ID != msg.SenderID && viewer.ID != msg.RecipientID {
		thread, err := e.store.GetThread(ctx, msg.ThreadID)
		if err != nil {
			return model.Message{}, err
		}
		if !thread.HasParticipant(viewer.ID) {
			return model.Message{}, fmt.Errorf("%w: スレッドの参加者ではありません", model.ErrAuthorization)
		}
	}
	if viewer.ID == msg.RecipientID && !msg.IsRead {
		if _, err := e.store.MarkMessageRead(ctx, msg.ID, viewer.ID); err != nil {
			return model.Message{}, err
		}
		msg.IsRead = true
	}
	return msg, nil
}

// ToggleThreadStatus は参加者によるスレッドの開閉の反転。
func (e *Engine) ToggleThreadStatus(ctx context.Context, actorID, threadID string) (model.Thread, error) {
	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return model.Thread{}, err
	}
	if !thread.HasParticipant(actorID) {
		return model.Thread{}, fmt.Errorf("%w: スレッドの参加者ではありません", model.ErrAuthorization)
	}
	return e.toggle(ctx, thread, actorID)
}

// AdminToggleThreadStatus は管理者によるスレッドの開閉の反転。参加者でなくても行える。
func (e *Engine) AdminToggleThreadStatus(ctx context.Context, adminID, threadID string) (model.Thread, error) {
	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return model.Thread{}, err
	}
	return e.toggle(ctx, thread, adminID)
}

// toggle は開閉を反転し、操作者以外の参加者に通知する。
func (e *Engine) toggle(ctx context.Context, thread model.Thread, actorID string) (model.Thread, error) {
	isOpen, err := e.store.ToggleThreadOpen(ctx, thread.ID)
	if err != nil {
		return model.Thread{}, err
	}
	thread.IsOpen = isOpen

	for _, userID := range thread.OtherParticipants(actorID) {
		_, err := e.notifier.Dispatch(ctx, notify.Intent{
			UserID: userID,
			Kind:   model.ThreadStatusChange{ThreadID: thread.ID, IsOpen: isOpen},
		})
		if err != nil {
			e.logger.Warn().Err(err).
				Str("thread_id", thread.ID).
				Str("user_id", userID).
				Msg("スレッド開閉の通知に失敗しました")
		}
	}
	e.logger.Info().Str("thread_id", thread.ID).Str("actor_id", actorID).Bool("is_open", isOpen).Msg("スレッドの開閉を変更しました")
	return thread, nil
}

// notifyNewMessage はnew_message通知を作成する。失敗はログに記録するだけにする。
func (e *Engine) notifyNewMessage(ctx context.Context, thread model.Thread, msg model.Message, userID string) {
	_, err := e.notifier.Dispatch(ctx, notify.Intent{
		UserID: userID,
		Kind:   model.NewMessage{ThreadID: thread.ID, MessageID: msg.ID},
	})
	if err != nil {
		e.logger.Warn().Err(err).
			Str("thread_id", thread.ID).
			Str("message_id", msg.ID).
			Str("user_id", userID).
			Msg("新着メッセージの通知に失敗しました")
	}
}

// escalateNewThread は新しいスレッドをメールで知らせる。
// 宛先が管理者の場合は管理者用アドレスに送る。
func (e *Engine) escalateNewThread(ctx context.Context, thread model.Thread, msg model.Message, recipient account.User, sender string) {
	n := escalation.Notice{
		To:       recipient.Email,
		UserID:   recipient.ID,
		Template: escalation.TemplateThreadMessage,
		Heading:  "新しい問い合わせが届きました",
		Subject:  thread.Subject,
		Sender:   sender,
		Preview:  msg.Content,
		Link:     e.links.Thread(thread.ID),
	}
	if recipient.IsAdmin() && e.adminEmail != "" {
		n.To = e.adminEmail
		n.Heading = fmt.Sprintf("%s部門に新しい問い合わせが届きました", thread.Department)
	}
	e.escalator.Notify(ctx, n)
}

// senderName はメールに載せる送信者の表示名を返す。取得できない場合はユーザーIDを使う。
func (e *Engine) senderName(ctx context.Context, userID string) string {
	if e.directory == nil {
		return userID
	}
	u, err := e.directory.Lookup(ctx, userID)
	if err != nil {
		e.logger.Debug().Err(err).Str("user_id", userID).Msg("送信者の表示名を取得できませんでした")
		return userID
	}
	return u.Name()
}

// uploadAll は添付ファイルを1つずつアップロードする。失敗したファイルはログに記録して除外する。
func (e *Engine) uploadAll(ctx context.Context, uploads []storage.Upload) []model.Attachment {
	if len(uploads) == 0 {
		return nil
	}
	if e.uploader == nil {
		e.logger.Warn().Int("count", len(uploads)).Msg("アップロード先が未設定のため添付ファイルを破棄しました")
		return nil
	}
	attachments := make([]model.Attachment, 0, len(uploads))
	for _, u := range uploads {
		a, err := e.uploader.Upload(ctx, u)
		if err != nil {
			e.logger.Warn().Err(err).Str("filename", u.Filename).Msg("添付ファイルのアップロードに失敗しました")
			continue
		}
		attachments = append(attachments, a)
	}
	return attachments
}

package store

import (
	"context"
	"fmt"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/store/db"
)

// ThreadFilter はスレッド一覧の絞り込み条件。
type ThreadFilter struct {
	// UserID は参加者として含まれるユーザー。必須。
	UserID string
	// Department は部門での絞り込み。空なら全部門。
	Department model.Department
	// IsOpen は開閉状態での絞り込み。nilなら両方。
	IsOpen *bool
}

// CreateThreadWithMessage はスレッドと最初のメッセージを1トランザクションで作成する。
// スレッドの最新メッセージはmsgを指す状態で保存される。
func (s *Store) CreateThreadWithMessage(ctx context.Context, thread model.Thread, msg model.Message) error {
	return s.withTx(ctx, func(q *db.Queries) error {
		err := q.CreateThread(ctx, db.CreateThreadParams{
			ID:            thread.ID,
			Subject:       thread.Subject,
			Department:    string(thread.Department),
			IsOpen:        boolToInt(thread.IsOpen),
			LastMessageID: msg.ID,
			LastMessageAt: formatTime(msg.CreatedAt),
			CreatedAt:     formatTime(thread.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("スレッドの作成に失敗: %w", err)
		}
		for i, userID := range thread.Participants {
			err := q.AddParticipant(ctx, db.AddParticipantParams{
				ThreadID: thread.ID,
				UserID:   userID,
				Position: int64(i),
			})
			if err != nil {
				return fmt.Errorf("参加者の登録に失敗: %w", err)
			}
		}
		return insertMessage(ctx, q, msg)
	})
}

// AppendMessage はメッセージを保存し、スレッドの最新メッセージを更新する。
// 最新メッセージ日時は単調非減少で、より古いメッセージでは上書きしない。
func (s *Store) AppendMessage(ctx context.Context, msg model.Message) error {
	return s.withTx(ctx, func(q *db.Queries) error {
		if _, err := q.GetThread(ctx, msg.ThreadID); err != nil {
			return notFound(err, "スレッド", msg.ThreadID)
		}
		if err := insertMessage(ctx, q, msg); err != nil {
			return err
		}
		_, err := q.SetThreadLastMessage(ctx, db.SetThreadLastMessageParams{
			LastMessageID: msg.ID,
			LastMessageAt: formatTime(msg.CreatedAt),
			ID:            msg.ThreadID,
		})
		if err != nil {
			return fmt.Errorf("最新メッセージの更新に失敗: %w", err)
		}
		return nil
	})
}

func insertMessage(ctx context.Context, q *db.Queries, msg model.Message) error {
	err := q.CreateMessage(ctx, db.CreateMessageParams{
		ID:          msg.ID,
		ThreadID:    msg.ThreadID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		CreatedAt:   formatTime(msg.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("メッセージの作成に失敗: %w", err)
	}
	for i, a := range msg.Attachments {
		err := q.CreateAttachment(ctx, db.CreateAttachmentParams{
			MessageID: msg.ID,
			Position:  int64(i),
			Filename:  a.Filename,
			Url:       a.URL,
		})
		if err != nil {
			return fmt.Errorf("添付ファイルの保存に失敗: %w", err)
		}
	}
	return nil
}

// GetThread はスレッドを参加者付きで取得する。
func (s *Store) GetThread(ctx context.Context, id string) (model.Thread, error) {
	row, err := s.queries.GetThread(ctx, id)
	if err != nil {
		return model.Thread{}, notFound(err, "スレッド", id)
	}
	return s.toThread(ctx, row)
}

// ListThreads はユーザーが参加しているスレッドを最新メッセージ日時の降順で返す。
func (s *Store) ListThreads(ctx context.Context, f ThreadFilter) ([]model.Thread, error) {
	isOpen := int64(-1)
	if f.IsOpen != nil {
		isOpen = boolToInt(*f.IsOpen)
	}
	rows, err := s.queries.ListThreadsByUser(ctx, db.ListThreadsByUserParams{
		UserID:     f.UserID,
		Department: string(f.Department),
		IsOpen:     isOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("スレッド一覧の取得に失敗: %w", err)
	}
	threads := make([]model.Thread, 0, len(rows))
	for _, row := range rows {
		t, err := s.toThread(ctx, row)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// ToggleThreadOpen はスレッドの開閉状態を反転し、反転後の状態を返す。
func (s *Store) ToggleThreadOpen(ctx context.Context, id string) (bool, error) {
	isOpen, err := s.queries.ToggleThreadOpen(ctx, id)
	if err != nil {
		return false, notFound(err, "スレッド", id)
	}
	return isOpen == 1, nil
}

// ListMessages はスレッドのメッセージを作成順に添付ファイル付きで返す。
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.queries.ListMessagesByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗: %w", err)
	}
	attachments, err := s.queries.ListAttachmentsByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("添付ファイルの取得に失敗: %w", err)
	}
	byMessage := make(map[string][]model.Attachment)
	for _, a := range attachments {
		byMessage[a.MessageID] = append(byMessage[a.MessageID], model.Attachment{Filename: a.Filename, URL: a.Url})
	}
	messages := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row, byMessage[row.ID]))
	}
	return messages, nil
}

// GetMessage はメッセージを添付ファイル付きで取得する。
func (s *Store) GetMessage(ctx context.Context, id string) (model.Message, error) {
	row, err := s.queries.GetMessage(ctx, id)
	if err != nil {
		return model.Message{}, notFound(err, "メッセージ", id)
	}
	rows, err := s.queries.ListAttachmentsByMessage(ctx, id)
	if err != nil {
		return model.Message{}, fmt.Errorf("添付ファイルの取得に失敗: %w", err)
	}
	attachments := make([]model.Attachment, 0, len(rows))
	for _, a := range rows {
		attachments = append(attachments, model.Attachment{Filename: a.Filename, URL: a.Url})
	}
	return toMessage(row, attachments), nil
}

// MarkMessageRead は受信者によるメッセージの既読化を行う。
// 受信者以外、または既読済みの場合は何もせずfalseを返す。
func (s *Store) MarkMessageRead(ctx context.Context, id, recipientID string) (bool, error) {
	n, err := s.queries.MarkMessageRead(ctx, db.MarkMessageReadParams{ID: id, RecipientID: recipientID})
	if err != nil {
		return false, fmt.Errorf("メッセージの既読化に失敗: %w", err)
	}
	return n > 0, nil
}

// MarkThreadRead はスレッド内で受信者宛ての未読メッセージを既読にし、件数を返す。
func (s *Store) MarkThreadRead(ctx context.Context, threadID, recipientID string) (int64, error) {
	n, err := s.queries.MarkThreadMessagesRead(ctx, db.MarkThreadMessagesReadParams{
		ThreadID:    threadID,
		RecipientID: recipientID,
	})
	if err != nil {
		return 0, fmt.Errorf("スレッドの既読化に失敗: %w", err)
	}
	return n, nil
}

func (s *Store) toThread(ctx context.Context, row db.Thread) (model.Thread, error) {
	participants, err := s.queries.ListParticipants(ctx, row.ID)
	if err != nil {
		return model.Thread{}, fmt.Errorf("参加者の取得に失敗: %w", err)
	}
	return model.Thread{
		ID:              row.ID,
		Subject:         row.Subject,
		Participants:    participants,
		Department:      model.Department(row.Department),
		IsOpen:          row.IsOpen == 1,
		LastMessageID:   row.LastMessageID,
		LastMessageDate: parseTime(row.LastMessageAt),
		CreatedAt:       parseTime(row.CreatedAt),
	}, nil
}

func toMessage(row db.Message, attachments []model.Attachment) model.Message {
	return model.Message{
		ID:          row.ID,
		ThreadID:    row.ThreadID,
		SenderID:    row.SenderID,
		RecipientID: row.RecipientID,
		Content:     row.Content,
		Attachments: attachments,
		IsRead:      row.IsRead == 1,
		CreatedAt:   parseTime(row.CreatedAt),
	}
}

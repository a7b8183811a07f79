package store

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/model"
)

// setupTestStore はテスト用のStoreをインメモリSQLiteで構築する。
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.Context(), ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Storeの作成に失敗: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// createTestThread はU1とU2のスレッドを最初のメッセージ付きで作成する。
func createTestThread(t *testing.T, s *Store, id string) model.Thread {
	t.Helper()
	thread := model.Thread{
		ID:           id,
		Subject:      "Billing issue",
		Participants: []string{"u1", "u2"},
		Department:   model.DepartmentPayment,
		IsOpen:       true,
		CreatedAt:    baseTime,
	}
	msg := model.Message{
		ID:          id + "-m1",
		ThreadID:    id,
		SenderID:    "u1",
		RecipientID: "u2",
		Content:     "Help",
		Attachments: []model.Attachment{{Filename: "a.pdf", URL: "https://files/a.pdf"}},
		CreatedAt:   baseTime,
	}
	if err := s.CreateThreadWithMessage(t.Context(), thread, msg); err != nil {
		t.Fatalf("スレッドの作成に失敗: %v", err)
	}
	return thread
}

func TestThreadLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("作成したスレッドが参加者と最新メッセージ付きで取得できること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		createTestThread(t, s, "t1")

		got, err := s.GetThread(t.Context(), "t1")
		if err != nil {
			t.Fatalf("GetThread()でエラーが発生: %v", err)
		}
		if len(got.Participants) != 2 || got.Participants[0] != "u1" || got.Participants[1] != "u2" {
			t.Errorf("参加者が不正: %v", got.Participants)
		}
		if got.LastMessageID != "t1-m1" {
			t.Errorf("LastMessageID: got %q, want %q", got.LastMessageID, "t1-m1")
		}
		if !got.LastMessageDate.Equal(baseTime) {
			t.Errorf("LastMessageDate: got %v, want %v", got.LastMessageDate, baseTime)
		}
		if !got.IsOpen || got.Department != model.DepartmentPayment {
			t.Errorf("スレッドの状態が不正: %+v", got)
		}
	})

	t.Run("存在しないスレッドはErrNotFoundになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		if _, err := s.GetThread(t.Context(), "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("ErrNotFoundが返されるべき: %v", err)
		}
		if _, err := s.ToggleThreadOpen(t.Context(), "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("ErrNotFoundが返されるべき: %v", err)
		}
		err := s.AppendMessage(t.Context(), model.Message{ID: "m", ThreadID: "missing", Content: "x", CreatedAt: baseTime})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("ErrNotFoundが返されるべき: %v", err)
		}
	})

	t.Run("開閉の反転を2回行うと元に戻ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		createTestThread(t, s, "t1")

		first, err := s.ToggleThreadOpen(t.Context(), "t1")
		if err != nil {
			t.Fatalf("ToggleThreadOpen()でエラーが発生: %v", err)
		}
		second, err := s.ToggleThreadOpen(t.Context(), "t1")
		if err != nil {
			t.Fatalf("ToggleThreadOpen()でエラーが発生: %v", err)
		}
		if first || !second {
			t.Errorf("反転結果が不正: first=%v second=%v", first, second)
		}
	})
}

func TestAppendMessage(t *testing.T) {
	t.Parallel()

	t.Run("最新メッセージ日時は最も新しいメッセージの作成日時になること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		createTestThread(t, s, "t1")

		later := baseTime.Add(time.Minute)
		if err := s.AppendMessage(t.Context(), model.Message{
			ID: "m2", ThreadID: "t1", SenderID: "u2", RecipientID: "u1", Content: "later", CreatedAt: later,
		}); err != nil {
			t.Fatalf("AppendMessage()でエラーが発生: %v", err)
		}
		// 遅れて届いた古いメッセージでは最新メッセージを巻き戻さない
		if err := s.AppendMessage(t.Context(), model.Message{
			ID: "m3", ThreadID: "t1", SenderID: "u1", RecipientID: "u2", Content: "stale", CreatedAt: baseTime.Add(time.Second),
		}); err != nil {
			t.Fatalf("AppendMessage()でエラーが発生: %v", err)
		}

		got, err := s.GetThread(t.Context(), "t1")
		if err != nil {
			t.Fatalf("GetThread()でエラーが発生: %v", err)
		}
		if got.LastMessageID != "m2" || !got.LastMessageDate.Equal(later) {
			t.Errorf("最新メッセージが不正: id=%s date=%v", got.LastMessageID, got.LastMessageDate)
		}

		messages, err := s.ListMessages(t.Context(), "t1")
		if err != nil {
			t.Fatalf("ListMessages()でエラーが発生: %v", err)
		}
		wantOrder := []string{"t1-m1", "m3", "m2"}
		if len(messages) != len(wantOrder) {
			t.Fatalf("メッセージ数: got %d, want %d", len(messages), len(wantOrder))
		}
		for i, id := range wantOrder {
			if messages[i].ID != id {
				t.Errorf("messages[%d]: got %s, want %s", i, messages[i].ID, id)
			}
		}
		if len(messages[0].Attachments) != 1 || messages[0].Attachments[0].Filename != "a.pdf" {
			t.Errorf("添付ファイルが不正: %+v", messages[0].Attachments)
		}
	})

	t.Run("受信者が開いたときだけ既読になること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		createTestThread(t, s, "t1")

		changed, err := s.MarkMessageRead(t.Context(), "t1-m1", "u1")
		if err != nil {
			t.Fatalf("MarkMessageRead()でエラーが発生: %v", err)
		}
		if changed {
			t.Error("送信者による既読化は無視されるべき")
		}
		changed, err = s.MarkMessageRead(t.Context(), "t1-m1", "u2")
		if err != nil {
			t.Fatalf("MarkMessageRead()でエラーが発生: %v", err)
		}
		if !changed {
			t.Error("受信者の初回既読化は反映されるべき")
		}
		msg, err := s.GetMessage(t.Context(), "t1-m1")
		if err != nil {
			t.Fatalf("GetMessage()でエラーが発生: %v", err)
		}
		if !msg.IsRead {
			t.Error("メッセージが既読になっていない")
		}
	})
}

func TestListThreads(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	createTestThread(t, s, "t1")
	createTestThread(t, s, "t2")
	if err := s.AppendMessage(t.Context(), model.Message{
		ID: "m2", ThreadID: "t2", SenderID: "u1", RecipientID: "u2", Content: "x", CreatedAt: baseTime.Add(time.Hour),
	}); err != nil {
		t.Fatalf("AppendMessage()でエラーが発生: %v", err)
	}
	if _, err := s.ToggleThreadOpen(t.Context(), "t1"); err != nil {
		t.Fatalf("ToggleThreadOpen()でエラーが発生: %v", err)
	}

	open, closed := true, false
	tests := []struct {
		name   string
		filter ThreadFilter
		want   []string
	}{
		{name: "最新メッセージ日時の降順で返すこと", filter: ThreadFilter{UserID: "u2"}, want: []string{"t2", "t1"}},
		{name: "開いているスレッドのみ", filter: ThreadFilter{UserID: "u2", IsOpen: &open}, want: []string{"t2"}},
		{name: "閉じているスレッドのみ", filter: ThreadFilter{UserID: "u2", IsOpen: &closed}, want: []string{"t1"}},
		{name: "部門で絞り込めること", filter: ThreadFilter{UserID: "u2", Department: model.DepartmentTech}, want: nil},
		{name: "参加していないユーザーには返さないこと", filter: ThreadFilter{UserID: "u3"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.ListThreads(t.Context(), tt.filter)
			if err != nil {
				t.Fatalf("ListThreads()でエラーが発生: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("件数: got %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("[%d]: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	create := func(t *testing.T, s *Store, id string, kind model.Kind, at time.Time) {
		t.Helper()
		if err := s.CreateNotification(t.Context(), model.Notification{
			ID: id, UserID: "u2", Message: "msg " + id, CreatedAt: at, Kind: kind,
		}); err != nil {
			t.Fatalf("CreateNotification()でエラーが発生: %v", err)
		}
	}

	t.Run("種別ごとのデータが往復で保持されること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		kinds := []model.Kind{
			model.StatusChange{OrderID: "o1"},
			model.FileAdded{OrderID: "o1", File: model.Attachment{Filename: "f.png", URL: "https://files/f.png"}},
			model.ThreadStatusChange{ThreadID: "t1", IsOpen: false},
			model.NewMessage{ThreadID: "t1", MessageID: "m1"},
			model.OrderStatusChange{OrderID: "o1", NewStatus: "shipped"},
			model.NewAdminComment{OrderID: "o1"},
		}
		for i, k := range kinds {
			id := string(k.Type())
			create(t, s, id, k, baseTime.Add(time.Duration(i)*time.Second))
			got, err := s.GetNotification(t.Context(), id)
			if err != nil {
				t.Fatalf("GetNotification()でエラーが発生: %v", err)
			}
			if got.Kind != k {
				t.Errorf("%s: got %+v, want %+v", id, got.Kind, k)
			}
			if got.IsRead {
				t.Errorf("%s: 作成直後は未読であるべき", id)
			}
		}
	})

	t.Run("一覧・未読数・既読化が一貫していること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		create(t, s, "n1", model.StatusChange{OrderID: "o1"}, baseTime)
		create(t, s, "n2", model.NewAdminComment{OrderID: "o1"}, baseTime.Add(time.Second))
		create(t, s, "n3", model.NewMessage{ThreadID: "t1"}, baseTime.Add(2*time.Second))
		create(t, s, "n4", model.OrderStatusChange{OrderID: "o2", NewStatus: "paid"}, baseTime.Add(3*time.Second))

		items, total, err := s.ListNotifications(t.Context(), NotificationQuery{UserID: "u2", Limit: 2})
		if err != nil {
			t.Fatalf("ListNotifications()でエラーが発生: %v", err)
		}
		if total != 4 || len(items) != 2 || items[0].ID != "n4" || items[1].ID != "n3" {
			t.Errorf("一覧が不正: total=%d items=%v", total, items)
		}

		n, err := s.MarkOrderNotificationsRead(t.Context(), "u2", "o1")
		if err != nil || n != 2 {
			t.Fatalf("MarkOrderNotificationsRead(): n=%d err=%v", n, err)
		}
		assertUnread(t, s, 2)

		if err := s.SetNotificationRead(t.Context(), "n3", true); err != nil {
			t.Fatalf("SetNotificationRead()でエラーが発生: %v", err)
		}
		assertUnread(t, s, 1)

		unread, err := s.ListUnreadNotifications(t.Context(), "u2", 20)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 || unread[0].ID != "n4" {
			t.Errorf("未読一覧が不正: %v", unread)
		}

		if _, err := s.MarkAllNotificationsRead(t.Context(), "u2"); err != nil {
			t.Fatalf("MarkAllNotificationsRead()でエラーが発生: %v", err)
		}
		assertUnread(t, s, 0)
	})
}

func assertUnread(t *testing.T, s *Store, want int64) {
	t.Helper()
	got, err := s.CountUnread(t.Context(), "u2")
	if err != nil {
		t.Fatalf("CountUnread()でエラーが発生: %v", err)
	}
	if got != want {
		t.Errorf("未読数: got %d, want %d", got, want)
	}
}

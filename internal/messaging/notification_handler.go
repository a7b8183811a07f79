package messaging

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/notify"
	"github.com/nao1215/courier/internal/store"
)

const (
	// defaultPageLimit は通知一覧の1ページあたりの既定件数。
	defaultPageLimit = 20
	// maxPageLimit は通知一覧の1ページあたりの最大件数。
	maxPageLimit = 100
)

// createNotificationRequest は内部APIの通知作成リクエスト。
type createNotificationRequest struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"userId"`
	// Type は通知種別。
	Type model.NotificationType `json:"type"`
	// Message は通知文。省略時は種別ごとの既定の文。
	Message string `json:"message"`
	// OrderID は注文ID。
	OrderID string `json:"orderId"`
	// ThreadID はスレッドID。
	ThreadID string `json:"threadId"`
	// MessageID はメッセージID。
	MessageID string `json:"messageId"`
	// File は追加されたファイル。
	File *model.Attachment `json:"file"`
	// NewStatus は新しい注文ステータス。
	NewStatus string `json:"newStatus"`
	// IsOpen はスレッドの開閉状態。
	IsOpen *bool `json:"isOpen"`
}

// parsePage はページ番号と件数を読み取る。件数は最大値に丸める。
// 読み飛ばす件数がintに収まらないページ番号はエラーにする。
func parsePage(c *gin.Context) (page, limit int, err error) {
	page, limit = 1, defaultPageLimit
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: pageは1以上の整数で指定してください", model.ErrValidation)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("%w: limitは1以上の整数で指定してください", model.ErrValidation)
		}
	}
	limit = min(limit, maxPageLimit)
	if page-1 > math.MaxInt/limit {
		return 0, 0, fmt.Errorf("%w: pageが大きすぎます", model.ErrValidation)
	}
	return page, limit, nil
}

// handleListNotifications は通知一覧を新しい順にページングして返すハンドラ。
func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		page, limit, err := parsePage(c)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

		items, total, err := s.store.ListNotifications(c.Request.Context(), store.NotificationQuery{
			UserID:     userID,
			UnreadOnly: unreadOnly,
			Limit:      limit,
			Offset:     (page - 1) * limit,
		})
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, notificationPage{Items: toDocuments(items), Total: total, Page: page, Limit: limit})
	}
}

// handleUnreadCount は未読通知数を返すハンドラ。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		count, err := s.store.CountUnread(c.Request.Context(), userID)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// handleToggleRead は通知の既読状態を反転するハンドラ。
func (s *Server) handleToggleRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		n, err := s.dispatcher.ToggleRead(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, notify.NewDocument(n))
	}
}

// handleMarkAllRead は全通知を既読にするハンドラ。
func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		updated, err := s.dispatcher.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

// handleMarkOrderRead は注文に関する通知を既読にするハンドラ。
func (s *Server) handleMarkOrderRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		updated, err := s.dispatcher.MarkOrderRead(c.Request.Context(), userID, c.Param("orderId"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

// handleCreateNotification は他サービスからの依頼で通知を作成・配信するハンドラ。
func (s *Server) handleCreateNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, s.logger, fmt.Errorf("%w: リクエストボディが不正です: %v", model.ErrValidation, err))
			return
		}

		kind, err := model.NotificationFields{
			Type:      req.Type,
			OrderID:   req.OrderID,
			ThreadID:  req.ThreadID,
			MessageID: req.MessageID,
			File:      req.File,
			NewStatus: req.NewStatus,
			IsOpen:    req.IsOpen,
		}.Kind()
		if err != nil {
			writeError(c, s.logger, err)
			return
		}

		n, err := s.dispatcher.Dispatch(c.Request.Context(), notify.Intent{UserID: req.UserID, Message: req.Message, Kind: kind})
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusCreated, notify.NewDocument(n))
	}
}

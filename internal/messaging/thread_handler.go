package messaging

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/courier/internal/conversation"
	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/internal/storage"
	"github.com/nao1215/courier/internal/store"
	"github.com/nao1215/courier/pkg/middleware"
)

// attachmentField はmultipartで添付ファイルを受け取るフィールド名。
const attachmentField = "attachments"

// createThreadRequest はスレッド作成のリクエストボディ。
type createThreadRequest struct {
	// Subject は件名。
	Subject string `json:"subject" form:"subject"`
	// RecipientID は相手のユーザーID。省略時は部門の窓口。
	RecipientID string `json:"recipientId" form:"recipientId"`
	// Department は問い合わせ先部門。
	Department string `json:"department" form:"department"`
	// Content は最初のメッセージの本文。
	Content string `json:"content" form:"content"`
}

// addMessageRequest はメッセージ送信のリクエストボディ。
type addMessageRequest struct {
	// Content は本文。
	Content string `json:"content" form:"content"`
}

// currentUser は認証済みユーザーIDを返す。取得できない場合は401を書き込んでfalseを返す。
func currentUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
		return "", false
	}
	return userID, true
}

// viewerOf はリクエストの操作者を返す。
func viewerOf(c *gin.Context, userID string) conversation.Viewer {
	return conversation.Viewer{ID: userID, Admin: middleware.GetRole(c) == middleware.RoleAdmin}
}

// isMultipart はリクエストがmultipart/form-dataかどうかを返す。
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm)
}

// bindRequest はJSONまたはmultipartのリクエストを読み込み、添付ファイルを返す。
func bindRequest(c *gin.Context, req any) ([]storage.Upload, error) {
	if !isMultipart(c) {
		if err := c.ShouldBindJSON(req); err != nil {
			return nil, fmt.Errorf("%w: リクエストボディが不正です: %v", model.ErrValidation, err)
		}
		return nil, nil
	}
	if err := c.ShouldBind(req); err != nil {
		return nil, fmt.Errorf("%w: フォームが不正です: %v", model.ErrValidation, err)
	}
	return readUploads(c)
}

// readUploads はmultipartの添付ファイルをメモリに読み込む。
func readUploads(c *gin.Context) ([]storage.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: フォームが不正です: %v", model.ErrValidation, err)
	}
	files := form.File[attachmentField]
	uploads := make([]storage.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("添付ファイルのオープンに失敗: %w", err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("添付ファイルの読み込みに失敗: %w", err)
		}
		uploads = append(uploads, storage.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

// handleCreateThread はスレッドを最初のメッセージ付きで作成するハンドラ。
func (s *Server) handleCreateThread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req createThreadRequest
		uploads, err := bindRequest(c, &req)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}

		thread, msg, err := s.engine.CreateThread(c.Request.Context(), conversation.CreateThreadInput{
			Subject:     req.Subject,
			InitiatorID: userID,
			RecipientID: req.RecipientID,
			Department:  req.Department,
			Content:     req.Content,
			Attachments: uploads,
		})
		if err != nil {
			writeError(c, s.logger, err)
			return
		}

		c.JSON(http.StatusCreated, threadDetailResponse{
			threadResponse: toThreadResponse(thread),
			Messages:       []messageResponse{toMessageResponse(msg)},
		})
	}
}

// handleListThreads は参加しているスレッドを最新メッセージ順に返すハンドラ。
func (s *Server) handleListThreads() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		filter := store.ThreadFilter{
			UserID:     userID,
			Department: model.Department(c.Query("department")),
		}
		if raw := c.Query("open"); raw != "" {
			open, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(c, s.logger, fmt.Errorf("%w: openはtrueまたはfalseで指定してください", model.ErrValidation))
				return
			}
			filter.IsOpen = &open
		}

		threads, err := s.engine.ListThreads(c.Request.Context(), filter)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, toThreadResponses(threads))
	}
}

// handleGetThread はスレッドをメッセージ付きで返すハンドラ。
func (s *Server) handleGetThread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		detail, err := s.engine.GetThread(c.Request.Context(), viewerOf(c, userID), c.Param("id"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}

		messages := make([]messageResponse, 0, len(detail.Messages))
		for _, m := range detail.Messages {
			messages = append(messages, toMessageResponse(m))
		}
		c.JSON(http.StatusOK, threadDetailResponse{
			threadResponse: toThreadResponse(detail.Thread),
			Messages:       messages,
		})
	}
}

// handleAddMessage はスレッドにメッセージを追加するハンドラ。
func (s *Server) handleAddMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req addMessageRequest
		uploads, err := bindRequest(c, &req)
		if err != nil {
			writeError(c, s.logger, err)
			return
		}

		msg, err := s.engine.AddMessage(c.Request.Context(), conversation.AddMessageInput{
			ThreadID:    c.Param("id"),
			SenderID:    userID,
			Content:     req.Content,
			Attachments: uploads,
		})
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusCreated, toMessageResponse(msg))
	}
}

// handleGetMessage はメッセージ単体を返すハンドラ。受信者が開くと既読になる。
func (s *Server) handleGetMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		msg, err := s.engine.GetMessage(c.Request.Context(), viewerOf(c, userID), c.Param("id"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, toMessageResponse(msg))
	}
}

// handleToggleThread は参加者がスレッドの開閉を反転するハンドラ。
func (s *Server) handleToggleThread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		thread, err := s.engine.ToggleThreadStatus(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, toThreadResponse(thread))
	}
}

// handleAdminToggleThread は管理者がスレッドの開閉を反転するハンドラ。
func (s *Server) handleAdminToggleThread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		thread, err := s.engine.AdminToggleThreadStatus(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			writeError(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, toThreadResponse(thread))
	}
}

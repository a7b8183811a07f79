package messaging

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nao1215/courier/internal/model"
)

// statusOf はエラーをHTTPステータスに変換する。
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, model.ErrBusinessRule):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError はエラーをJSONレスポンスとして書き込む。
// 500の場合は内部のエラー内容を返さずログに記録する。
func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("リクエストの処理に失敗しました")
		c.JSON(status, gin.H{"error": "内部エラーが発生しました"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

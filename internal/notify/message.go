package notify

import (
	"fmt"

	"github.com/nao1215/courier/internal/model"
)

// DefaultMessage は種別ごとの既定の通知文を返す。
func DefaultMessage(k model.Kind) string {
	switch v := k.(type) {
	case model.StatusChange:
		return fmt.Sprintf("注文 %s のステータスが更新されました", v.OrderID)
	case model.FileAdded:
		return fmt.Sprintf("注文 %s にファイル %s が追加されました", v.OrderID, v.File.Filename)
	case model.ThreadStatusChange:
		if v.IsOpen {
			return "スレッドが再開されました"
		}
		return "スレッドがクローズされました"
	case model.NewMessage:
		return "新しいメッセージが届きました"
	case model.OrderStatusChange:
		return fmt.Sprintf("注文 %s のステータスが %s に変更されました", v.OrderID, v.NewStatus)
	case model.NewAdminComment:
		return fmt.Sprintf("注文 %s に管理者からのコメントがあります", v.OrderID)
	}
	return ""
}

func orderHeading(k model.Kind) string {
	switch k.(type) {
	case model.FileAdded:
		return "ファイルが追加されました"
	case model.NewAdminComment:
		return "管理者からのコメントがあります"
	default:
		return "注文のステータスが変わりました"
	}
}

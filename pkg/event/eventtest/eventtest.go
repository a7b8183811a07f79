// Package eventtest はライブイベントを受け取る側のテストで使う補助関数を提供する。
package eventtest

import (
	"encoding/json"
	"fmt"

	"github.com/nao1215/courier/pkg/event"
)

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *event.Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New は新しいイベントを生成する。
// dataにはイベント固有のペイロードを渡す。JSON形式にシリアライズされる。
func New(name Name, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:        uuid.New().String(),
		Name:      name,
		Data:      jsonData,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Encode はイベントをワイヤ形式（JSON）にエンコードする。
func (e *Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("イベントのエンコードに失敗: %w", err)
	}
	return b, nil
}

// Decode はワイヤ形式のバイト列をイベントに戻す。
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("イベントのデコードに失敗: %w", err)
	}
	return &e, nil
}

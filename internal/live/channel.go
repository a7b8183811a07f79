package live

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// sendBufferSize はチャネルごとの送信キューの長さ。
const sendBufferSize = 256

var (
	errChannelClosed = errors.New("チャネルは閉じられています")
	errBufferFull    = errors.New("送信バッファが満杯です")
)

// channel はWebSocketとSSEで共通の送信キュー付きチャネル。
// 書き込みは各トランスポートの送信ループが send から取り出して行う。
type channel struct {
	id        string
	transport string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(transport string) *channel {
	return &channel{
		id:        uuid.New().String(),
		transport: transport,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// ID はチャネルの一意識別子を返す。
func (c *channel) ID() string { return c.id }

// Send は送信キューにイベントを積む。キューが満杯のクライアントは追いつけないとみなして閉じる。
func (c *channel) Send(payload []byte) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errChannelClosed
	default:
		c.Close()
		return errBufferFull
	}
}

// Close はチャネルを閉じる。送信ループは done を見て終了する。
func (c *channel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

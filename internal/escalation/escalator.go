package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// sendTimeout はメール1通あたりの送信タイムアウト。
const sendTimeout = 30 * time.Second

// ResolveFunc はユーザーIDから宛先メールアドレスを解決する。
type ResolveFunc func(ctx context.Context, userID string) (string, error)

// Option はEscalatorの設定を変更する。
type Option func(*Escalator)

// WithResolver はNotice.Toが空の場合に使う宛先の解決方法を設定する。
func WithResolver(fn ResolveFunc) Option {
	return func(e *Escalator) { e.resolve = fn }
}

// Escalator はエスカレーションメールをバックグラウンドで送信する。
// nilのEscalatorへの呼び出しは何もしない。
type Escalator struct {
	mailer   Mailer
	renderer *Renderer
	resolve  ResolveFunc
	logger   zerolog.Logger
	results  *prometheus.CounterVec
	wg       sync.WaitGroup
}

// New はEscalatorを生成する。regがnilの場合はメトリクスを記録しない。
func New(mailer Mailer, logger zerolog.Logger, reg prometheus.Registerer, opts ...Option) (*Escalator, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	e := &Escalator{
		mailer:   mailer,
		renderer: renderer,
		logger:   logger.With().Str("component", "escalation").Logger(),
	}
	if reg != nil {
		e.results = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "escalation",
			Name:      "emails_total",
			Help:      "Escalation emails by template and result.",
		}, []string{"template", "result"})
		reg.MustRegister(e.results)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Notify はメール送信をバックグラウンドで1回試みる。呼び出し元は結果を待たない。
// ctxのキャンセルは引き継がず、値だけを引き継ぐ。
func (e *Escalator) Notify(ctx context.Context, n Notice) {
	if e == nil || e.mailer == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		err := e.send(ctx, n)
		e.record(n.Template, err)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("to", n.To).
				Str("user_id", n.UserID).
				Str("template", string(n.Template)).
				Msg("エスカレーションメールの送信に失敗しました")
		}
	}()
}

// send は宛先の解決・レンダリング・送信を行う。途中のパニックはエラーに変換する。
func (e *Escalator) send(ctx context.Context, n Notice) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("メール送信中にパニックが発生: %v", r)
		}
	}()
	if n.To == "" && n.UserID != "" && e.resolve != nil {
		if n.To, err = e.resolve(ctx, n.UserID); err != nil {
			return fmt.Errorf("宛先 %s の解決に失敗: %w", n.UserID, err)
		}
	}
	m, err := e.renderer.Render(n)
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, m)
}

func (e *Escalator) record(tmpl Template, err error) {
	if e.results == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	e.results.WithLabelValues(string(tmpl), result).Inc()
}

// Wait は送信中のメールがすべて終わるまで待つ。
func (e *Escalator) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/nao1215/courier/pkg/config"
)

// Mailer はメールを送信する。
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer はSMTPでメールを送信する。
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer はSMTPクライアントを生成する。接続は送信のたびに行う。
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("SMTPクライアントの生成に失敗: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send はメールを1通送信する。
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	msg, err := buildMsg(s.from, m)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("メール送信に失敗: %w", err)
	}
	return nil
}

func buildMsg(from string, m Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("送信元アドレスが不正: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("宛先アドレスが不正: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.TextBody)
	if m.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTMLBody)
	}
	return msg, nil
}

// LogMailer はメールを送信せずにログへ出力する。SMTPが未設定の開発環境で使う。
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send はメールの内容をログに出力する。
func (l *LogMailer) Send(_ context.Context, m Mail) error {
	l.logger.Info().Str("to", m.To).Str("subject", m.Subject).Msg("メール送信（ログ出力のみ）")
	return nil
}

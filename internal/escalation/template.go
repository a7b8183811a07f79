package escalation

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*
var templatesFS embed.FS

// Template はメールテンプレートの種類。
type Template string

const (
	// TemplateThreadMessage はスレッドの新着メッセージ・新規スレッドのメール。
	TemplateThreadMessage Template = "thread_message"
	// TemplateOrderUpdate は注文に関する通知のメール。
	TemplateOrderUpdate Template = "order_update"
)

// previewLength はプレビューの最大文字数。
const previewLength = 140

// Notice は1通のエスカレーションメールの内容。
type Notice struct {
	// To は宛先メールアドレス。空の場合はUserIDから解決する。
	To string
	// UserID は宛先ユーザー。Toが空の場合だけ使う。
	UserID string
	// Template は使用するテンプレート。
	Template Template
	// Heading は本文の見出し。
	Heading string
	// Subject はスレッドの件名または注文ID。メールの件名にも使う。
	Subject string
	// Sender は送信者の表示名。空なら表示しない。
	Sender string
	// Preview はきっかけになった内容。最大140文字に切り詰める。
	Preview string
	// Link はスレッドまたは注文へのディープリンク。
	Link string
}

// Mail はレンダリング済みのメール。
type Mail struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Renderer はNoticeをメールにレンダリングする。
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// NewRenderer は埋め込みテンプレートを読み込む。
// HTML本文のプレビューはMarkdownとして描画する。生のHTMLは出力しない。
func NewRenderer() (*Renderer, error) {
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("テキストテンプレートの読み込みに失敗: %w", err)
	}
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
	funcs := htmltemplate.FuncMap{
		"markdown": func(s string) (htmltemplate.HTML, error) {
			var buf bytes.Buffer
			if err := md.Convert([]byte(s), &buf); err != nil {
				return "", err
			}
			return htmltemplate.HTML(buf.String()), nil //nolint:gosec // goldmarkは生のHTMLを除去する
		},
	}
	html, err := htmltemplate.New("mail").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("HTMLテンプレートの読み込みに失敗: %w", err)
	}
	return &Renderer{text: text, html: html}, nil
}

// Render はNoticeをメールにする。
func (r *Renderer) Render(n Notice) (Mail, error) {
	if n.To == "" {
		return Mail{}, fmt.Errorf("宛先が空です")
	}
	n.Preview = Truncate(n.Preview, previewLength)

	var text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, string(n.Template)+".txt", n); err != nil {
		return Mail{}, fmt.Errorf("テンプレート %s のレンダリングに失敗: %w", n.Template, err)
	}
	if err := r.html.ExecuteTemplate(&html, string(n.Template)+".html", n); err != nil {
		return Mail{}, fmt.Errorf("テンプレート %s のレンダリングに失敗: %w", n.Template, err)
	}
	return Mail{
		To:       n.To,
		Subject:  subjectLine(n),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func subjectLine(n Notice) string {
	switch n.Template {
	case TemplateOrderUpdate:
		return fmt.Sprintf("[Courier] 注文 %s: %s", n.Subject, n.Heading)
	default:
		return fmt.Sprintf("[Courier] %s: %s", n.Heading, n.Subject)
	}
}

// Truncate はsを最大maxRunes文字に切り詰める。切り詰めた場合は末尾に「…」を付ける。
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "…"
}

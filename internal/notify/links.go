package notify

import (
	"net/url"
	"strings"
)

// Links はフロントエンドへのディープリンクを組み立てる。
type Links struct {
	base string
}

// NewLinks はフロントエンドのベースURLからLinksを生成する。
func NewLinks(frontendURL string) Links {
	return Links{base: strings.TrimRight(frontendURL, "/")}
}

// Thread はスレッドのURLを返す。
func (l Links) Thread(threadID string) string {
	return l.base + "/messages/" + url.PathEscape(threadID)
}

// Order は注文のURLを返す。
func (l Links) Order(orderID string) string {
	return l.base + "/orders/" + url.PathEscape(orderID)
}

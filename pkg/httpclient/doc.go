// Package httpclient は外部サービスとの通信に使用するHTTPクライアントを提供する。
//
// JSONのリクエスト/レスポンスとマルチパートによるファイル送信に対応する。
// 2xx以外のレスポンスは StatusError として返す。
package httpclient

// Package messaging はスレッド・メッセージ・通知のREST APIとライブチャネルを提供するHTTPサーバー。
//
// 各コンポーネントの生成と結線もこのパッケージで行う。
// 接続レジストリはプロセスごとに1つだけ生成し、Shutdownで閉じる。
package messaging

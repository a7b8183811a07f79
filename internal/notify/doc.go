// Package notify は通知の作成と配信を行う。
//
// Dispatcher は通知を保存してから、通知種別ごとの配信表に従って
// ライブチャネルへイベントを送り、最後に必ず未読数を送り直す。
// 保存の失敗は呼び出し元に返すが、ライブ配信とメールの失敗はログに記録するだけにとどめる。
//
// 未読数は保存済みの通知から毎回数え直し、キャッシュしない。
package notify

// Package conversation はスレッドとメッセージの状態遷移を扱う。
//
// スレッドは作成時に開いた状態で始まり、参加者用と管理者用の2つの入口から
// 開閉を反転できる。メッセージはスレッドの開閉にかかわらず送信できる。
//
// 保存が成功した後の通知・メール・アップロード失敗以外の副作用は
// 失敗しても呼び出し元には返さず、ログに記録するだけにとどめる。
package conversation

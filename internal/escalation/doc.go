// Package escalation は会話や注文の動きをメールで知らせる。
//
// メール送信はライブチャネルの有無にかかわらず行うベストエフォートの通知で、
// 呼び出し元の処理とは独立したゴルーチンで1回だけ試みる。
// 送信の失敗（パニックを含む）はログに記録して破棄し、再試行はしない。
package escalation

// Package registry はライブチャネル（WebSocket/SSE）の接続を
// ユーザーごとに管理し、イベントを配信する。
//
// 1人のユーザーが複数のチャネル（ブラウザの複数タブなど）を同時に開けるため、
// ユーザーIDごとにチャネルのリストを保持し、登録・解除はチャネルの同一性で行う。
// 配信先のチャネルが無い場合の Deliver はエラーにせず何もしない。
//
// レジストリはプロセス内だけの状態で、永続化しない。
// サーバー起動時に1度生成し、停止時に Close で全チャネルを閉じる。
// nilのレジストリは空のレジストリとして振る舞う。
package registry

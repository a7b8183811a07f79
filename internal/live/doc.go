// Package live はライブチャネルのエンドポイントを提供する。
//
//   - GET /live/ws     : WebSocket。トークンはAuthorizationヘッダーまたは ?token= で渡す。
//   - GET /live/events : Server-Sent Events。ヘッダーを設定できないクライアント向けで、
//     トークンは ?token= で渡す。
//
// どちらもアップグレード（ストリーム開始）前にトークンを検証し、
// 無効な場合は401を返してレジストリには何も登録しない。
package live

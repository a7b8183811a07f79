// Package model は会話（スレッド/メッセージ）と通知のドメイン型、
// およびサービス全体で共有するエラー分類を定義する。
//
// 通知は種別ごとに必要なフィールドが異なるため、種別ごとの型（Kind の実装）で
// 表現する。order と thread のどちらを持つかは型によって決まる。
package model

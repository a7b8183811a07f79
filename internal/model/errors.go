package model

import "errors"

var (
	// ErrNotFound は参照先のスレッド/メッセージ/通知が存在しないことを表す。
	ErrNotFound = errors.New("見つかりません")
	// ErrValidation は必須項目の欠落や列挙値の制約違反を表す。
	ErrValidation = errors.New("入力が不正です")
	// ErrAuthentication はトークンが無い、または無効であることを表す。
	ErrAuthentication = errors.New("認証に失敗しました")
	// ErrAuthorization は操作に必要な権限が無いことを表す。
	ErrAuthorization = errors.New("権限がありません")
	// ErrBusinessRule は業務ルール違反（宛先を解決できない等）を表す。
	ErrBusinessRule = errors.New("業務ルールに違反しています")
)

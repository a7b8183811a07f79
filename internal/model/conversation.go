package model

import (
	"fmt"
	"slices"
	"time"
)

// Department はスレッドの問い合わせ先部門。
type Department string

const (
	// DepartmentTech は技術サポート部門。
	DepartmentTech Department = "tech"
	// DepartmentPayment は支払い部門。
	DepartmentPayment Department = "payment"
	// DepartmentComplaint は苦情受付部門。
	DepartmentComplaint Department = "complaint"
	// DepartmentOther はその他の問い合わせ。
	DepartmentOther Department = "other"
)

// ParseDepartment は文字列を部門に変換する。空または未知の値はErrValidationになる。
func ParseDepartment(s string) (Department, error) {
	d := Department(s)
	switch d {
	case DepartmentTech, DepartmentPayment, DepartmentComplaint, DepartmentOther:
		return d, nil
	case "":
		return "", fmt.Errorf("%w: departmentは必須です", ErrValidation)
	}
	return "", fmt.Errorf("%w: departmentが不正です: %q", ErrValidation, s)
}

// Attachment はメッセージの添付ファイル。
type Attachment struct {
	// Filename はファイル名。
	Filename string `json:"filename"`
	// URL は保存先のURL。
	URL string `json:"url"`
}

// Thread は参加者間の会話。
type Thread struct {
	// ID はスレッドの一意識別子。
	ID string
	// Subject は件名。
	Subject string
	// Participants は参加者のユーザーID。現状は2名だがリストとして扱う。
	Participants []string
	// Department は問い合わせ先部門。
	Department Department
	// IsOpen はスレッドが開いているかどうか。
	IsOpen bool
	// LastMessageID は最新メッセージのID。メッセージが無い場合は空。
	LastMessageID string
	// LastMessageDate は最新メッセージの作成日時。単調非減少。
	LastMessageDate time.Time
	// CreatedAt はスレッドの作成日時。
	CreatedAt time.Time
}

// HasParticipant はユーザーがスレッドの参加者かどうかを返す。
func (t Thread) HasParticipant(userID string) bool {
	return slices.Contains(t.Participants, userID)
}

// OtherParticipants は指定ユーザー以外の参加者を重複なしで返す。
func (t Thread) OtherParticipants(userID string) []string {
	var others []string
	for _, p := range t.Participants {
		if p != userID && !slices.Contains(others, p) {
			others = append(others, p)
		}
	}
	return others
}

// Message はスレッド内の1件のメッセージ。
type Message struct {
	// ID はメッセージの一意識別子。
	ID string
	// ThreadID は所属スレッドのID。
	ThreadID string
	// SenderID は送信者のユーザーID。
	SenderID string
	// RecipientID は受信者（送信者以外の参加者）のユーザーID。
	RecipientID string
	// Content は本文。
	Content string
	// Attachments は添付ファイル（順序あり）。
	Attachments []Attachment
	// IsRead は受信者が既読にしたかどうか。
	IsRead bool
	// CreatedAt は作成日時。不変。
	CreatedAt time.Time
}

// Package account はユーザーアカウントサービスへの問い合わせを提供する。
// アカウントの保存と認証はこのサービスの責務ではなく、参照のみを行う。
package account

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/pkg/httpclient"
	"github.com/nao1215/courier/pkg/middleware"
)

// User はアカウントサービスから取得したユーザー情報。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// DisplayName は表示名。
	DisplayName string `json:"displayName"`
	// Role はロール（"admin" または空）。
	Role string `json:"role"`
}

// IsAdmin は管理者ロールかどうかを返す。
func (u User) IsAdmin() bool {
	return u.Role == middleware.RoleAdmin
}

// Name は表示名を返す。表示名が無い場合はIDを返す。
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Directory はユーザー情報の参照先。
type Directory interface {
	// Lookup はユーザーを取得する。存在しない場合はErrNotFoundを返す。
	Lookup(ctx context.Context, userID string) (User, error)
	// DepartmentContact は部門の窓口ユーザーを取得する。
	DepartmentContact(ctx context.Context, dept model.Department) (User, error)
}

// HTTPDirectory はアカウントサービスのREST APIを使うDirectory。
type HTTPDirectory struct {
	client *httpclient.Client
}

// NewHTTPDirectory はHTTPDirectoryを生成する。
func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{client: httpclient.New(baseURL)}
}

// Lookup は GET /api/v1/users/:id でユーザーを取得する。
func (d *HTTPDirectory) Lookup(ctx context.Context, userID string) (User, error) {
	var u User
	if err := d.client.GetJSON(ctx, "/api/v1/users/"+url.PathEscape(userID), &u); err != nil {
		if httpclient.IsNotFound(err) {
			return User{}, fmt.Errorf("%w: ユーザーが見つかりません: %s", model.ErrNotFound, userID)
		}
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// DepartmentContact は GET /api/v1/departments/:department/contact で窓口ユーザーを取得する。
func (d *HTTPDirectory) DepartmentContact(ctx context.Context, dept model.Department) (User, error) {
	var u User
	if err := d.client.GetJSON(ctx, "/api/v1/departments/"+url.PathEscape(string(dept))+"/contact", &u); err != nil {
		if httpclient.IsNotFound(err) {
			return User{}, fmt.Errorf("%w: 部門 %s の窓口が見つかりません", model.ErrNotFound, dept)
		}
		return User{}, fmt.Errorf("部門窓口の取得に失敗: %w", err)
	}
	return u, nil
}

// StaticDirectory はメモリ上のユーザー一覧を使うDirectory。
// アカウントサービスを使わない開発環境とテストで使う。
type StaticDirectory struct {
	// Users はユーザーIDごとのユーザー情報。
	Users map[string]User
	// Contacts は部門ごとの窓口ユーザーID。
	Contacts map[model.Department]string
}

// Lookup はユーザーを取得する。
func (d StaticDirectory) Lookup(_ context.Context, userID string) (User, error) {
	u, ok := d.Users[userID]
	if !ok {
		return User{}, fmt.Errorf("%w: ユーザーが見つかりません: %s", model.ErrNotFound, userID)
	}
	return u, nil
}

// DepartmentContact は部門の窓口ユーザーを取得する。
func (d StaticDirectory) DepartmentContact(ctx context.Context, dept model.Department) (User, error) {
	id, ok := d.Contacts[dept]
	if !ok {
		return User{}, fmt.Errorf("%w: 部門 %s の窓口が見つかりません", model.ErrNotFound, dept)
	}
	return d.Lookup(ctx, id)
}

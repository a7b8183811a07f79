// Package storage は添付ファイルをファイル保存サービスにアップロードする。
package storage

import (
	"context"
	"fmt"

	"github.com/nao1215/courier/internal/model"
	"github.com/nao1215/courier/pkg/httpclient"
)

// Upload はアップロードする1ファイル。
type Upload struct {
	// Filename は元のファイル名。
	Filename string
	// ContentType はMIMEタイプ。
	ContentType string
	// Data はファイルの内容。
	Data []byte
}

// Uploader は添付ファイルを保存し、保存先を返す。
type Uploader interface {
	Upload(ctx context.Context, f Upload) (model.Attachment, error)
}

// HTTPUploader はファイル保存サービスのREST APIを使うUploader。
type HTTPUploader struct {
	client *httpclient.Client
}

// NewHTTPUploader はHTTPUploaderを生成する。
func NewHTTPUploader(baseURL string) *HTTPUploader {
	return &HTTPUploader{client: httpclient.New(baseURL)}
}

// uploadResponse はファイル保存サービスのレスポンス。
type uploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Upload は POST /api/v1/files にファイルを送信する。
func (u *HTTPUploader) Upload(ctx context.Context, f Upload) (model.Attachment, error) {
	var resp uploadResponse
	err := u.client.PostMultipart(ctx, "/api/v1/files", httpclient.FilePart{
		FieldName:   "file",
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Data:        f.Data,
	}, &resp)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("ファイル %s のアップロードに失敗: %w", f.Filename, err)
	}
	if resp.URL == "" {
		return model.Attachment{}, fmt.Errorf("ファイル %s の保存先URLが空です", f.Filename)
	}
	name := resp.Filename
	if name == "" {
		name = f.Filename
	}
	return model.Attachment{Filename: name, URL: resp.URL}, nil
}

package form

import (
	"context"
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xjj0211/approval-frontend/internal/model"
	"golang.org/x/sync/errgroup"
)

// Encoder 将尚未持久化的暂存文件转换为可提交的地址
type Encoder interface {
	Encode(ctx context.Context, f *StagedFile) (string, error)
}

// DataURIEncoder 编码为 base64 data URI
type DataURIEncoder struct{}

// Encode 生成 data:<mime>;base64,<data>
func (DataURIEncoder) Encode(_ context.Context, f *StagedFile) (string, error) {
	return DataURI(f), nil
}

// DataURI 生成文件的 data URI
func DataURI(f *StagedFile) string {
	mime := f.MIME
	if mime == "" {
		mime = baseMIME(mimetype.Detect(f.Data).String())
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// resolveURL 已有地址的文件原样返回,否则编码
func resolveURL(ctx context.Context, enc Encoder, f *StagedFile) (string, error) {
	if f.Persisted() {
		return f.URL, nil
	}
	return enc.Encode(ctx, f)
}

// resolveImages 按顺序解析图片地址
func resolveImages(ctx context.Context, enc Encoder, files []*StagedFile) ([]string, error) {
	out := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := resolveURL(ctx, enc, f)
			if err != nil {
				return err
			}
			out[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveAttachments 按顺序解析表格附件
func resolveAttachments(ctx context.Context, enc Encoder, files []*StagedFile) ([]model.Attachment, error) {
	out := make([]model.Attachment, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := resolveURL(ctx, enc, f)
			if err != nil {
				return err
			}
			out[i] = model.Attachment{Name: f.Name, URL: url}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

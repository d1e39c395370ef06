// Package storage 将暂存文件上传到对象存储并返回可访问地址
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/form"
)

// ObjectPutter 对象写入接口
type ObjectPutter interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
}

// MinIOClient MinIO 客户端封装
type MinIOClient struct {
	client *minio.Client
	bucket string
	logger logrus.FieldLogger
}

// NewMinIOClient 创建 MinIO 客户端,存储桶不存在时创建
func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig, logger logrus.FieldLogger) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.WithField("bucket", cfg.Bucket).Info("bucket created")
	}

	return &MinIOClient{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// PutObject 上传对象
func (m *MinIOClient) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		m.logger.WithError(err).WithField("object", objectName).Error("failed to put object")
		return err
	}
	return nil
}

// HealthCheck 健康检查
func (m *MinIOClient) HealthCheck(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}

// MinIOEncoder 将暂存文件上传到对象存储,提交时使用对象地址代替 data URI
type MinIOEncoder struct {
	store   ObjectPutter
	baseURL string
	now     func() time.Time
}

// NewMinIOEncoder 创建编码器,baseURL 为对象的对外访问前缀(含存储桶)
func NewMinIOEncoder(store ObjectPutter, baseURL string) *MinIOEncoder {
	return &MinIOEncoder{store: store, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// PublicBaseURL 计算对外访问前缀,未配置 public_url 时由 endpoint 与存储桶拼出
func PublicBaseURL(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

// ObjectName 生成对象名: approvals/<yyyymm>/<uid><ext>
func (e *MinIOEncoder) ObjectName(f *form.StagedFile) string {
	ext := strings.ToLower(filepath.Ext(f.Name))
	return path.Join("approvals", e.now().Format("200601"), f.UID+ext)
}

// Encode 上传文件并返回访问地址
func (e *MinIOEncoder) Encode(ctx context.Context, f *form.StagedFile) (string, error) {
	name := e.ObjectName(f)
	if err := e.store.PutObject(ctx, name, bytes.NewReader(f.Data), int64(len(f.Data)), f.MIME); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}
	return e.baseURL + "/" + name, nil
}

var _ form.Encoder = (*MinIOEncoder)(nil)

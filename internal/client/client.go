// Package client 审批后端 REST 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/xjj0211/approval-frontend/internal/metrics"
)

// maxBodyBytes 单个响应体读取上限
const maxBodyBytes = 32 << 20

// StatusError 后端返回非 2xx 状态
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Operation, e.StatusCode)
}

// NotFound 是否为 404
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client 审批后端客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New 创建客户端,baseURL 形如 http://localhost:3000/api
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 返回后端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do 发送请求并返回响应体,非 2xx 转为 *StatusError
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body interface{}) (result []byte, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.RecordBackendRequest(operation, err, elapsed.Seconds())
		entry := c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"method":    method,
			"path":      path,
			"duration":  elapsed.String(),
		})
		if err != nil {
			entry.WithError(err).Warn("backend request failed")
			return
		}
		entry.Debug("backend request")
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}
	return data, nil
}

// errorMessage 从错误响应中提取消息
func errorMessage(data []byte) string {
	if !gjson.ValidBytes(data) {
		return strings.TrimSpace(string(data))
	}
	for _, path := range []string{"message", "error.message", "error", "msg"} {
		if r := gjson.GetBytes(data, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}

// unwrapData 取 {data: ...} 信封中的内容,没有信封时返回原文
func unwrapData(data []byte) []byte {
	if !gjson.ValidBytes(data) {
		return data
	}
	r := gjson.GetBytes(data, "data")
	if r.Exists() && (r.IsObject() || r.IsArray()) {
		return []byte(r.Raw)
	}
	return data
}

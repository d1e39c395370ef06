package form

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrStagingFull 暂存列表已达上限
	ErrStagingFull = errors.New("staging list is full")
	// ErrFileRejected 文件类型不符合要求
	ErrFileRejected = errors.New("file type not accepted")
	// ErrFileTooLarge 文件超过大小限制
	ErrFileTooLarge = errors.New("file too large")
)

// FileKind 暂存列表类型
type FileKind string

const (
	KindImage      FileKind = "image"
	KindAttachment FileKind = "attachment"
)

// 表格附件允许的扩展名
var attachmentExts = []string{".xlsx", ".xls", ".csv"}

// StagedFile 暂存文件,URL 非空表示已持久化的文件
type StagedFile struct {
	UID  string
	Name string
	MIME string
	Size int64
	Data []byte
	URL  string
}

// Persisted 是否已有地址
func (f *StagedFile) Persisted() bool { return f.URL != "" }

// StagingList 待提交的附件列表
type StagingList struct {
	kind     FileKind
	limit    int
	maxBytes int64
	files    []*StagedFile
}

// NewStagingList 创建暂存列表,maxBytes 为 0 表示不限制大小
func NewStagingList(kind FileKind, limit int, maxBytes int64) *StagingList {
	if limit <= 0 {
		limit = 1
	}
	return &StagingList{kind: kind, limit: limit, maxBytes: maxBytes}
}

// Kind 列表类型
func (l *StagingList) Kind() FileKind { return l.kind }

// Limit 最大文件数
func (l *StagingList) Limit() int { return l.limit }

// Len 当前文件数
func (l *StagingList) Len() int { return len(l.files) }

// Full 是否已满
func (l *StagingList) Full() bool { return len(l.files) >= l.limit }

// Files 返回文件列表副本
func (l *StagingList) Files() []*StagedFile {
	return append([]*StagedFile(nil), l.files...)
}

// Get 按 UID 查找
func (l *StagingList) Get(uid string) (*StagedFile, bool) {
	for _, f := range l.files {
		if f.UID == uid {
			return f, true
		}
	}
	return nil, false
}

// Add 接收新选择的文件。上限为 1 的列表直接替换原文件,其余列表已满时返回 ErrStagingFull
func (l *StagingList) Add(name string, data []byte) (*StagedFile, error) {
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%s %q: %w", l.kind, name, ErrFileTooLarge)
	}
	mime, err := admit(l.kind, name, data)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", l.kind, name, err)
	}
	f := &StagedFile{
		UID:  uuid.NewString(),
		Name: filepath.Base(name),
		MIME: mime,
		Size: int64(len(data)),
		Data: data,
	}
	if l.Full() {
		if l.limit != 1 {
			return nil, ErrStagingFull
		}
		l.files = l.files[:0]
	}
	l.files = append(l.files, f)
	return f, nil
}

// AddPersisted 载入已持久化的文件,提交时原样传回
func (l *StagingList) AddPersisted(name, url string) *StagedFile {
	f := &StagedFile{UID: uuid.NewString(), Name: name, URL: url}
	l.files = append(l.files, f)
	return f
}

// Remove 按 UID 移除
func (l *StagingList) Remove(uid string) bool {
	for i, f := range l.files {
		if f.UID == uid {
			l.files = append(l.files[:i], l.files[i+1:]...)
			return true
		}
	}
	return false
}

func (l *StagingList) clone() *StagingList {
	c := *l
	c.files = l.Files()
	return &c
}

// admit 检查文件内容,返回其 MIME 类型
func admit(kind FileKind, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrFileRejected
	}
	detected := mimetype.Detect(data)
	switch kind {
	case KindImage:
		if !strings.HasPrefix(detected.String(), "image/") {
			return "", ErrFileRejected
		}
		return baseMIME(detected.String()), nil
	case KindAttachment:
		return admitAttachment(name, data, detected)
	}
	return "", ErrFileRejected
}

func admitAttachment(name string, data []byte, detected *mimetype.MIME) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, e := range attachmentExts {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrFileRejected
	}

	switch ext {
	case ".xlsx":
		wb, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return "", ErrFileRejected
		}
		_ = wb.Close()
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	case ".xls":
		if !detected.Is("application/vnd.ms-excel") && !detected.Is("application/x-ole-storage") {
			return "", ErrFileRejected
		}
		return "application/vnd.ms-excel", nil
	default:
		if !detected.Is("text/csv") && !detected.Is("text/plain") {
			return "", ErrFileRejected
		}
		return "text/csv", nil
	}
}

// baseMIME 去掉 charset 等参数
func baseMIME(s string) string {
	if i := strings.Index(s, ";"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// Package i18n 提供界面提示与生成校验消息的多语言资源
package i18n

import (
	"fmt"
	"strings"
	"sync"
)

// 支持的语言
const (
	LangZH = "zh"
	LangEN = "en"
)

// DefaultLang 默认语言
const DefaultLang = LangZH

// Translator 消息翻译接口
type Translator interface {
	T(key string, args ...interface{}) string
}

// Manager 国际化管理器
type Manager struct {
	mu       sync.RWMutex
	messages map[string]map[string]string // lang -> key -> message
}

var defaultManager = NewManager()

func init() {
	defaultManager.LoadMessages(LangZH, map[string]string{
		"form.required":       "请输入%s",
		"form.max_count":      "最大长度 %d",
		"form.invalid_date":   "日期格式应为 YYYY-MM-DD",
		"form.invalid_dept":   "请选择有效的部门",
		"form.init_failed":    "页面初始化失败",
		"form.submit_failed":  "提交失败",
		"form.created":        "创建成功",
		"form.updated":        "修改成功",
		"form.busy":           "正在提交,请勿重复操作",
		"form.staging_full":   "已达到上传数量上限",
		"form.file_rejected":  "文件类型不支持",
		"form.upload_failed":  "上传失败",
		"form.upload_partial": "已接收 %d 个文件,%s 未上传: %s",
		"list.fetch_failed":   "获取列表失败",
		"list.not_found":      "审批单不存在或已刷新",
		"action.success":      "操作成功",
		"action.failed":       "操作失败",
		"action.forbidden":    "当前角色无权执行该操作",
		"error.not_found":     "资源未找到",
		"error.bad_request":   "请求错误",
		"error.internal":      "服务器内部错误",
		"error.csrf":          "页面已过期,请刷新后重试",
		"error.rate_limited":  "请求过于频繁",
	})
	defaultManager.LoadMessages(LangEN, map[string]string{
		"form.required":       "Please enter %s",
		"form.max_count":      "Maximum length %d",
		"form.invalid_date":   "Date must be YYYY-MM-DD",
		"form.invalid_dept":   "Please choose a valid department",
		"form.init_failed":    "Failed to initialize the page",
		"form.submit_failed":  "Submission failed",
		"form.created":        "Created successfully",
		"form.updated":        "Updated successfully",
		"form.busy":           "A submission is already in progress",
		"form.staging_full":   "Upload limit reached",
		"form.file_rejected":  "File type not supported",
		"form.upload_failed":  "Upload failed",
		"form.upload_partial": "%d file(s) accepted, %s not uploaded: %s",
		"list.fetch_failed":   "Failed to load the list",
		"list.not_found":      "Approval not found on the current page",
		"action.success":      "Done",
		"action.failed":       "Operation failed",
		"action.forbidden":    "Your role cannot perform this action",
		"error.not_found":     "Resource not found",
		"error.bad_request":   "Bad request",
		"error.internal":      "Internal server error",
		"error.csrf":          "The page has expired, please reload",
		"error.rate_limited":  "Too many requests",
	})
}

// NewManager 创建国际化管理器
func NewManager() *Manager {
	return &Manager{messages: make(map[string]map[string]string)}
}

// Default 返回默认管理器
func Default() *Manager {
	return defaultManager
}

// LoadMessages 加载语言消息
func (m *Manager) LoadMessages(lang string, messages map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[lang] = messages
}

// Translate 翻译消息,找不到时依次回落到默认语言和 key 本身
func (m *Manager) Translate(lang, key string, args ...interface{}) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[lang][key]
	if !ok && lang != DefaultLang {
		msg, ok = m.messages[DefaultLang][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// For 返回绑定语言的翻译器
func (m *Manager) For(lang string) Translator {
	return langTranslator{m: m, lang: Normalize(lang)}
}

type langTranslator struct {
	m    *Manager
	lang string
}

func (t langTranslator) T(key string, args ...interface{}) string {
	return t.m.Translate(t.lang, key, args...)
}

// Normalize 规范化语言代码
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case strings.HasPrefix(lang, "zh"):
		return LangZH
	case strings.HasPrefix(lang, "en"):
		return LangEN
	}
	return DefaultLang
}

// ParseAcceptLanguage 解析 Accept-Language 头,取第一个语言
func ParseAcceptLanguage(header string) string {
	if header == "" {
		return DefaultLang
	}
	first := strings.Split(header, ",")[0]
	first = strings.Split(first, ";")[0]
	return Normalize(first)
}

package form

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xjj0211/approval-frontend/internal/i18n"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// RuleKind 校验规则类型
type RuleKind int

const (
	RuleRequired RuleKind = iota
	RuleMaxCount
)

// Rule 字段校验规则
type Rule struct {
	Kind    RuleKind
	Limit   int
	Message string
}

// DeriveRules 根据 validator 生成校验规则,只支持 required 与 maxCount
func DeriveRules(f model.FieldSchema, w Widget, tr i18n.Translator) []Rule {
	var rules []Rule
	if f.Required() {
		rules = append(rules, Rule{Kind: RuleRequired, Message: tr.T("form.required", f.Name)})
	}
	if n := f.MaxCount(); n > 0 && w.Count(w.Zero()) >= 0 {
		rules = append(rules, Rule{Kind: RuleMaxCount, Limit: n, Message: tr.T("form.max_count", n)})
	}
	return rules
}

// Check 校验取值,返回第一条不满足规则的消息
func Check(rules []Rule, w Widget, v Value) (string, bool) {
	for _, r := range rules {
		switch r.Kind {
		case RuleRequired:
			if v == nil || v.IsEmpty() {
				return r.Message, false
			}
		case RuleMaxCount:
			if v != nil && w.Count(v) > r.Limit {
				return r.Message, false
			}
		}
	}
	return "", true
}

// ValidationError 字段校验失败,Fields 为字段名到消息的映射
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

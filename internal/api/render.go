package api

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
)

//go:embed templates/*.html static/*
var assets embed.FS

// pageData 所有页面共用的数据
type pageData struct {
	Title   string
	Shell   shell.Context
	CSRF    string
	Flashes []Flash
	Lang    string
}

// newPageData 组装页面公共数据。会写入会话,必须在输出响应体之前调用
func newPageData(c *gin.Context, title string) pageData {
	return pageData{
		Title:   title,
		Shell:   shell.NewContext(currentRole(c), c.Request.URL.Path),
		CSRF:    CSRFToken(c),
		Flashes: takeFlashes(c),
		Lang:    GetLanguage(c),
	}
}

// LoadTemplates 解析内嵌的页面模板
func LoadTemplates(tree *model.DepartmentTree) (*template.Template, error) {
	return template.New("").Funcs(templateFuncs(tree)).ParseFS(assets, "templates/*.html")
}

// StaticFS 内嵌的静态资源
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func templateFuncs(tree *model.DepartmentTree) template.FuncMap {
	return template.FuncMap{
		"deptLabel": func(path []string) string { return tree.Label(path) },
		"orDash": func(s string) string {
			if strings.TrimSpace(s) == "" {
				return model.Placeholder
			}
			return s
		},
		"canEdit": func(s shell.Context, r model.ApprovalRecord) bool { return s.CanEdit(&r) },
		"canDecide": func(s shell.Context, r *model.ApprovalRecord) bool {
			return r != nil && s.CanDecide(r)
		},
		"safeURL": safeURL,
		"add":     func(a, b int) int { return a + b },
		"sub":     func(a, b int) int { return a - b },
	}
}

// safeURL 只放行 http(s) 与 data:image、data:application 地址
func safeURL(u string) template.URL {
	lower := strings.ToLower(strings.TrimSpace(u))
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return template.URL(u)
	case strings.HasPrefix(lower, "data:image/"), strings.HasPrefix(lower, "data:application/"),
		strings.HasPrefix(lower, "data:text/csv"):
		return template.URL(u)
	}
	return template.URL("#")
}

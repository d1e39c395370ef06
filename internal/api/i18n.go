package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xjj0211/approval-frontend/internal/i18n"
)

const languageKey = "language"

// I18nMiddleware 国际化中间件,语言来源依次为 ?lang 和 Accept-Language
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18n.DefaultLang
		if queryLang := c.Query("lang"); queryLang != "" {
			lang = i18n.Normalize(queryLang)
		} else if headerLang := c.GetHeader("Accept-Language"); headerLang != "" {
			lang = i18n.ParseAcceptLanguage(headerLang)
		}
		c.Set(languageKey, lang)
		c.Next()
	}
}

// GetLanguage 从上下文获取语言
func GetLanguage(c *gin.Context) string {
	if lang, ok := c.Get(languageKey); ok {
		if l, ok := lang.(string); ok {
			return l
		}
	}
	return i18n.DefaultLang
}

// Translator 当前请求的翻译器
func Translator(c *gin.Context) i18n.Translator {
	return i18n.Default().For(GetLanguage(c))
}

// T 翻译消息
func T(c *gin.Context, key string, args ...interface{}) string {
	return i18n.Default().Translate(GetLanguage(c), key, args...)
}

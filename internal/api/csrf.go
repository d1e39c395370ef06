package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CSRF 令牌的表单字段与请求头
const (
	CSRFFormField  = "_csrf"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFMiddleware CSRF 保护中间件。令牌与浏览器会话绑定,须在 SessionMiddleware 之后注册
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// GET、HEAD、OPTIONS 请求不需要 CSRF 保护
		if c.Request.Method == http.MethodGet ||
			c.Request.Method == http.MethodHead ||
			c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := c.GetHeader(CSRFHeaderName)
		if token == "" {
			token = c.PostForm(CSRFFormField)
		}

		expected, _ := sessions.Default(c).Get(sessionKeyCSRF).(string)
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			GetLogger().WithField("request_id", c.GetString("request_id")).
				WithField("path", c.Request.URL.Path).
				Warn("rejected request with invalid csrf token")
			abortWithError(c, http.StatusForbidden, T(c, "error.csrf"))
			return
		}
		c.Next()
	}
}

// CSRFToken 返回会话的 CSRF 令牌,不存在时生成
func CSRFToken(c *gin.Context) string {
	s := sessions.Default(c)
	if token, ok := s.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token
	}
	token, err := generateRandomToken(32)
	if err != nil {
		GetLogger().WithError(err).Error("failed to generate csrf token")
		return ""
	}
	s.Set(sessionKeyCSRF, token)
	saveSession(c, s)
	return token
}

// generateRandomToken 生成随机 token
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

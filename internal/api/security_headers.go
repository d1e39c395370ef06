package api

import (
	"github.com/gin-gonic/gin"
)

// contentSecurityPolicy 预览图使用 data: 与对象存储地址
const contentSecurityPolicy = "default-src 'self'; img-src 'self' data: https: http:; style-src 'self'; form-action 'self'; frame-ancestors 'none'"

// SecurityHeadersMiddleware 安全头中间件
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")
		c.Header("Content-Security-Policy", contentSecurityPolicy)

		// HSTS 只在 HTTPS 下发送
		if IsHTTPS(c) {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIError HTTP 层错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// ErrorHandlerMiddleware 处理 c.Errors 中未写出响应的错误;html 为 true 时浏览器请求渲染错误页
func ErrorHandlerMiddleware(html bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = &APIError{
				Code:    http.StatusInternalServerError,
				Message: T(c, "error.internal"),
				Detail:  err.Error(),
			}
		}
		if html && wantsHTML(c) {
			c.HTML(statusOf(apiErr.Code), "error.html", gin.H{
				"Title":   apiErr.Message,
				"Message": apiErr.Message,
				"Status":  statusOf(apiErr.Code),
			})
			return
		}
		Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
	}
}

// abortWithError 中间件中止请求并按请求类型输出错误
func abortWithError(c *gin.Context, status int, message string) {
	_ = c.Error(&APIError{Code: status, Message: message})
	if wantsHTML(c) && c.Request.Method == http.MethodPost {
		// 表单提交被拒绝时带消息返回原页面
		addFlash(c, flashError, message)
		c.Redirect(http.StatusSeeOther, backTarget(c))
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: status, Message: message})
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html") ||
		strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") ||
		strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func statusOf(code int) int {
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// 会话键
const (
	sessionKeyID   = "sid"
	sessionKeyRole = "role"
	sessionKeyCSRF = "csrf"
)

// 提示消息类型
const (
	flashSuccess = "success"
	flashError   = "error"
)

// Flash 一次性提示消息
type Flash struct {
	Kind    string
	Message string
}

// SessionMiddleware 基于 cookie 的会话。MaxAge 为 0,浏览器关闭即失效
func SessionMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   cfg.ForceHTTPS,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.SessionName, store)
}

func hasSession(c *gin.Context) bool {
	_, ok := c.Get(sessions.DefaultKey)
	return ok
}

// sessionID 返回浏览器会话 ID,首次访问时生成
func sessionID(c *gin.Context) string {
	s := sessions.Default(c)
	if id, ok := s.Get(sessionKeyID).(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	s.Set(sessionKeyID, id)
	saveSession(c, s)
	return id
}

// currentRole 会话中的角色,默认申请人
func currentRole(c *gin.Context) model.Role {
	s := sessions.Default(c)
	v, _ := s.Get(sessionKeyRole).(string)
	return model.ParseRole(v)
}

func setRole(c *gin.Context, role model.Role) {
	s := sessions.Default(c)
	s.Set(sessionKeyRole, string(role))
	saveSession(c, s)
}

func addFlash(c *gin.Context, kind, message string) {
	if !hasSession(c) || message == "" {
		return
	}
	s := sessions.Default(c)
	s.AddFlash(kind+"|"+message, "flash")
	saveSession(c, s)
}

// takeFlashes 读取并清除提示消息
func takeFlashes(c *gin.Context) []Flash {
	if !hasSession(c) {
		return nil
	}
	s := sessions.Default(c)
	raw := s.Flashes("flash")
	if len(raw) == 0 {
		return nil
	}
	saveSession(c, s)
	out := make([]Flash, 0, len(raw))
	for _, r := range raw {
		str, ok := r.(string)
		if !ok {
			continue
		}
		f := Flash{Kind: flashSuccess, Message: str}
		for i := 0; i < len(str); i++ {
			if str[i] == '|' {
				f.Kind, f.Message = str[:i], str[i+1:]
				break
			}
		}
		out = append(out, f)
	}
	return out
}

func saveSession(c *gin.Context, s sessions.Session) {
	if err := s.Save(); err != nil {
		GetLogger().WithError(err).WithField("request_id", c.GetString("request_id")).Warn("failed to save session")
	}
}

// backTarget 表单被拒绝时的返回地址,只接受本站路径
func backTarget(c *gin.Context) string {
	ref := c.GetHeader("Referer")
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request.Host) || !isPageRoute(u.Path) {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// isPageRoute 可以直接 GET 访问的页面路径
func isPageRoute(path string) bool {
	switch path {
	case "/", "/page", "/create", "/form":
		return true
	}
	for _, prefix := range []string{"/edit/", "/detail/"} {
		if strings.HasPrefix(path, prefix) {
			rest := path[len(prefix):]
			return rest != "" && !strings.Contains(rest, "/")
		}
	}
	return false
}

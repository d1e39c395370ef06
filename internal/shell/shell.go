// Package shell 页面外壳:会话角色、角色切换可见性与每个浏览器会话的工作区
package shell

import (
	"strings"

	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// Context 传递给列表与页面模板的会话上下文
type Context struct {
	Role model.Role
	Path string
}

// NewContext 创建会话上下文
func NewContext(role model.Role, path string) Context {
	return Context{Role: role, Path: path}
}

// ShowRoleSwitch 新建与修改页面隐藏角色切换
func ShowRoleSwitch(path string) bool {
	if path == "/create" || strings.HasPrefix(path, "/create/") {
		return false
	}
	return !strings.HasPrefix(path, "/edit/")
}

// ShowRoleSwitch 当前页面是否显示角色切换
func (c Context) ShowRoleSwitch() bool { return ShowRoleSwitch(c.Path) }

// IsApprover 是否为审批员
func (c Context) IsApprover() bool { return c.Role == model.RoleApprover }

// CanCreate 是否显示新建按钮
func (c Context) CanCreate() bool { return listview.CanCreate(c.Role) }

// CanEdit 是否显示修改按钮
func (c Context) CanEdit(rec *model.ApprovalRecord) bool { return listview.CanEdit(c.Role, rec) }

// CanDecide 是否显示通过/拒绝按钮
func (c Context) CanDecide(rec *model.ApprovalRecord) bool { return listview.CanDecide(c.Role, rec) }

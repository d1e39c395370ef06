package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
	"github.com/xjj0211/approval-frontend/internal/utils"
)

// pageSizes 可选的每页条数
var pageSizes = []int{10, 20, 50, 100}

// listPage 列表页数据
type listPage struct {
	pageData
	Snap        listview.Snapshot
	Statuses    []model.Status
	Departments []model.DepartmentOption
	PageSizes   []int
	Notice      string
}

// ListController 审批单列表页
type ListController struct {
	store  *shell.Store
	tree   *model.DepartmentTree
	logger logrus.FieldLogger
}

// NewListController 创建列表控制器
func NewListController(store *shell.Store, tree *model.DepartmentTree, logger logrus.FieldLogger) *ListController {
	return &ListController{store: store, tree: tree, logger: logger}
}

func (c *ListController) workspace(ctx *gin.Context) *shell.Workspace {
	return c.store.Get(sessionID(ctx))
}

// render 渲染列表页,err 为本次操作的错误
func (c *ListController) render(ctx *gin.Context, status int, view *listview.View, err error) {
	page := listPage{
		pageData:    newPageData(ctx, "审批列表"),
		Snap:        view.Snapshot(),
		Statuses:    model.Statuses,
		Departments: c.tree.Options(false),
		PageSizes:   pageSizes,
	}
	if err != nil && !errors.Is(err, listview.ErrStale) {
		page.Notice = T(ctx, "list.fetch_failed")
	}
	ctx.HTML(status, "list.html", page)
}

// Index 进入列表页:丢弃表单工作区,关闭详情,以已应用的条件查询
func (c *ListController) Index(ctx *gin.Context) {
	ws := c.workspace(ctx)
	ws.DiscardForm()
	ws.List.CloseDetail()
	err := ws.List.Refresh(ctx.Request.Context())
	c.render(ctx, http.StatusOK, ws.List, err)
}

// Search 应用筛选条件并查询第一页
func (c *ListController) Search(ctx *gin.Context) {
	ws := c.workspace(ctx)
	if err := ctx.Request.ParseForm(); err != nil {
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, ws.List, nil)
		return
	}
	f, err := listview.ParseFilter(ctx.Request.PostForm)
	if err != nil {
		c.logger.WithError(err).Debug("invalid filter")
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, ws.List, nil)
		return
	}
	ws.List.SetFilter(f)
	err = ws.List.Search(ctx.Request.Context())
	c.render(ctx, http.StatusOK, ws.List, err)
}

// Reset 清空筛选条件并以默认参数查询
func (c *ListController) Reset(ctx *gin.Context) {
	ws := c.workspace(ctx)
	err := ws.List.Reset(ctx.Request.Context())
	c.render(ctx, http.StatusOK, ws.List, err)
}

// Page 翻页或修改每页条数
func (c *ListController) Page(ctx *gin.Context) {
	ws := c.workspace(ctx)
	page, _ := strconv.Atoi(ctx.Query("page"))
	size, _ := strconv.Atoi(ctx.Query("size"))
	err := ws.List.ChangePage(ctx.Request.Context(), page, size)
	c.render(ctx, http.StatusOK, ws.List, err)
}

// Detail 打开详情面板,只读取已获取的行
func (c *ListController) Detail(ctx *gin.Context) {
	ws := c.workspace(ctx)
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, ws.List, nil)
		return
	}
	if _, err := ws.List.OpenDetail(id); err != nil {
		addFlash(ctx, flashError, T(ctx, "list.not_found"))
		c.render(ctx, http.StatusNotFound, ws.List, nil)
		return
	}
	c.render(ctx, http.StatusOK, ws.List, nil)
}

// Approve 审批通过
func (c *ListController) Approve(ctx *gin.Context) {
	c.decide(ctx, "pass", (*listview.View).Approve)
}

// Reject 审批拒绝
func (c *ListController) Reject(ctx *gin.Context) {
	c.decide(ctx, "reject", (*listview.View).Reject)
}

func (c *ListController) decide(ctx *gin.Context, action string, call func(*listview.View, context.Context, model.Role, string) error) {
	ws := c.workspace(ctx)
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, ws.List, nil)
		return
	}

	err := call(ws.List, ctx.Request.Context(), currentRole(ctx), id)
	switch {
	case err == nil:
		addFlash(ctx, flashSuccess, T(ctx, "action.success"))
		c.render(ctx, http.StatusOK, ws.List, ws.List.Snapshot().Err)
	case errors.Is(err, listview.ErrForbidden):
		addFlash(ctx, flashError, T(ctx, "action.forbidden"))
		c.render(ctx, http.StatusForbidden, ws.List, nil)
	case errors.Is(err, listview.ErrNoDetail):
		addFlash(ctx, flashError, T(ctx, "list.not_found"))
		c.render(ctx, http.StatusNotFound, ws.List, nil)
	default:
		// 操作失败时详情保持打开,便于重试
		c.logger.WithError(err).WithFields(logrus.Fields{"id": id, "action": action}).Warn("approval action failed")
		addFlash(ctx, flashError, T(ctx, "action.failed"))
		c.render(ctx, http.StatusBadGateway, ws.List, nil)
	}
}

// SwitchRole 切换会话角色
func (c *ListController) SwitchRole(ctx *gin.Context) {
	role := currentRole(ctx).Toggle()
	if want := ctx.PostForm("role"); want != "" {
		role = model.ParseRole(want)
	}
	setRole(ctx, role)
	c.logger.WithFields(logrus.Fields{
		"request_id": ctx.GetString("request_id"),
		"role":       role,
	}).Debug("role switched")
	ctx.Redirect(http.StatusSeeOther, backTarget(ctx))
}

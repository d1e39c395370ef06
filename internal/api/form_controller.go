package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/form"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
	"github.com/xjj0211/approval-frontend/internal/utils"
)

// 表单动作
const (
	actionSubmit           = "submit"
	actionUploadImage      = "upload-image"
	actionUploadAttachment = "upload-attachment"
	actionRemoveImage      = "remove-image:"
	actionRemoveAttachment = "remove-attachment:"
)

// multipartMemory 上传文件在内存中保留的上限,超出部分写入临时文件
const multipartMemory = 32 << 20

// 文件输入框字段名
const (
	imageFileField      = "imageFile"
	attachmentFileField = "attachmentFile"
)

// fieldView 渲染用的字段
type fieldView struct {
	Key       string
	Label     string
	Kind      string
	Required  bool
	MaxLength int
	Count     int
	Value     string
	Error     string
	Fallback  bool
	Options   []model.DepartmentOption
}

// formPage 新建/修改页数据
type formPage struct {
	pageData
	Mode            string
	ID              string
	Ready           bool
	InitError       string
	Submitting      bool
	Fields          []fieldView
	Images          []*form.StagedFile
	Attachments     []*form.StagedFile
	ImageLimit      int
	AttachmentLimit int
}

// FormController 新建与修改审批单
type FormController struct {
	backend client.FormBackend
	store   *shell.Store
	opts    form.Options
	logger  logrus.FieldLogger
}

// NewFormController 创建表单控制器,opts 中的 Translator 按请求语言覆盖
func NewFormController(backend client.FormBackend, store *shell.Store, opts form.Options, logger logrus.FieldLogger) *FormController {
	return &FormController{backend: backend, store: store, opts: opts, logger: logger}
}

// Create 新建页,每次进入都创建新的表单会话
func (c *FormController) Create(ctx *gin.Context) {
	c.open(ctx, "")
}

// Edit 修改页
func (c *FormController) Edit(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		_ = ctx.Error(&APIError{Code: http.StatusBadRequest, Message: T(ctx, "error.bad_request"), Detail: err.Error()})
		return
	}
	c.open(ctx, id)
}

func (c *FormController) open(ctx *gin.Context, id string) {
	ws := c.store.Get(sessionID(ctx))
	opts := c.opts
	opts.Translator = Translator(ctx)
	sess := form.NewSession(c.backend, id, opts)
	ws.SetForm(sess)

	if err := sess.Load(ctx.Request.Context()); err != nil {
		c.render(ctx, http.StatusBadGateway, sess, nil)
		return
	}
	c.render(ctx, http.StatusOK, sess, nil)
}

// Show 重新渲染当前表单会话,没有时回到列表
func (c *FormController) Show(ctx *gin.Context) {
	sess := c.store.Get(sessionID(ctx)).Form()
	if sess == nil {
		ctx.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.render(ctx, http.StatusOK, sess, nil)
}

// Post 处理表单提交与文件暂存动作
func (c *FormController) Post(ctx *gin.Context) {
	ws := c.store.Get(sessionID(ctx))
	sess := ws.Form()
	if sess == nil {
		addFlash(ctx, flashError, T(ctx, "form.init_failed"))
		ctx.Redirect(http.StatusSeeOther, "/")
		return
	}

	if err := ctx.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.logger.WithError(err).Debug("failed to parse form")
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, sess, nil)
		return
	}
	sess.Bind(ctx.Request.PostForm)

	action := ctx.Request.PostForm.Get("action")
	switch {
	case action == actionSubmit:
		c.submit(ctx, ws, sess)
	case action == actionUploadImage:
		c.upload(ctx, sess, imageFileField, len(sess.Images()), sess.ImageLimit(), sess.StageImage)
	case action == actionUploadAttachment:
		c.upload(ctx, sess, attachmentFileField, len(sess.Attachments()), sess.AttachmentLimit(), sess.StageAttachment)
	case strings.HasPrefix(action, actionRemoveImage):
		sess.RemoveImage(strings.TrimPrefix(action, actionRemoveImage))
		c.render(ctx, http.StatusOK, sess, nil)
	case strings.HasPrefix(action, actionRemoveAttachment):
		sess.RemoveAttachment(strings.TrimPrefix(action, actionRemoveAttachment))
		c.render(ctx, http.StatusOK, sess, nil)
	default:
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, sess, nil)
	}
}

func (c *FormController) submit(ctx *gin.Context, ws *shell.Workspace, sess *form.Session) {
	err := sess.Submit(ctx.Request.Context())

	var verr *form.ValidationError
	switch {
	case err == nil:
		ws.DiscardForm()
		key := "form.created"
		if sess.IsEdit() {
			key = "form.updated"
		}
		addFlash(ctx, flashSuccess, T(ctx, key))
		ctx.Redirect(http.StatusSeeOther, "/")
	case errors.As(err, &verr):
		c.render(ctx, http.StatusUnprocessableEntity, sess, verr.Fields)
	case errors.Is(err, form.ErrBusy):
		addFlash(ctx, flashError, T(ctx, "form.busy"))
		c.render(ctx, http.StatusConflict, sess, nil)
	case errors.Is(err, form.ErrNotReady):
		c.render(ctx, http.StatusConflict, sess, nil)
	default:
		// 草稿与暂存文件保留,用户可直接重试
		addFlash(ctx, flashError, T(ctx, "form.submit_failed"))
		c.render(ctx, http.StatusBadGateway, sess, nil)
	}
}

// upload 暂存一批上传文件。超出剩余数量时整批拒绝,
// 中途有文件被拒绝时提示已接收的数量。
func (c *FormController) upload(ctx *gin.Context, sess *form.Session, field string, staged, limit int, stage func(string, []byte) (*form.StagedFile, error)) {
	var files []*multipart.FileHeader
	if ctx.Request.MultipartForm != nil {
		files = ctx.Request.MultipartForm.File[field]
	}
	if len(files) == 0 {
		addFlash(ctx, flashError, T(ctx, "error.bad_request"))
		c.render(ctx, http.StatusBadRequest, sess, nil)
		return
	}

	// 上限为 1 时新文件替换旧文件
	remaining := limit - staged
	if limit == 1 {
		remaining = 1
	}
	if len(files) > remaining {
		c.logger.WithFields(logrus.Fields{
			"field":     field,
			"files":     len(files),
			"remaining": remaining,
		}).Info("upload batch exceeds limit")
		addFlash(ctx, flashError, T(ctx, "form.staging_full"))
		c.render(ctx, http.StatusUnprocessableEntity, sess, nil)
		return
	}

	for i, fh := range files {
		data, err := readUpload(fh, c.opts.MaxUploadBytes)
		if err == nil {
			_, err = stage(fh.Filename, data)
		}
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"file":     fh.Filename,
				"field":    field,
				"accepted": i,
			}).Info("upload not staged")
			msg := c.uploadMessage(ctx, err)
			if i > 0 {
				msg = T(ctx, "form.upload_partial", i, fh.Filename, msg)
			}
			addFlash(ctx, flashError, msg)
			c.render(ctx, http.StatusUnprocessableEntity, sess, nil)
			return
		}
	}
	c.render(ctx, http.StatusOK, sess, nil)
}

func (c *FormController) uploadMessage(ctx *gin.Context, err error) string {
	switch {
	case errors.Is(err, form.ErrStagingFull):
		return T(ctx, "form.staging_full")
	case errors.Is(err, form.ErrFileRejected), errors.Is(err, form.ErrFileTooLarge):
		return T(ctx, "form.file_rejected")
	case errors.Is(err, form.ErrNotReady):
		return T(ctx, "form.init_failed")
	}
	return T(ctx, "form.upload_failed")
}

// readUpload 读取上传文件,超过上限时多读一个字节交给暂存列表拒绝
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if limit <= 0 {
		return io.ReadAll(f)
	}
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// Preview 输出暂存图片
func (c *FormController) Preview(ctx *gin.Context) {
	sess := c.store.Get(sessionID(ctx)).Form()
	if sess == nil {
		_ = ctx.Error(&APIError{Code: http.StatusNotFound, Message: T(ctx, "error.not_found")})
		return
	}
	f, ok := sess.Preview(ctx.Param("uid"))
	if !ok || len(f.Data) == 0 {
		_ = ctx.Error(&APIError{Code: http.StatusNotFound, Message: T(ctx, "error.not_found")})
		return
	}
	ctx.Header("Cache-Control", "private, no-store")
	ctx.Data(http.StatusOK, f.MIME, f.Data)
}

// Cancel 放弃表单并回到列表
func (c *FormController) Cancel(ctx *gin.Context) {
	c.store.Get(sessionID(ctx)).DiscardForm()
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (c *FormController) render(ctx *gin.Context, status int, sess *form.Session, errs map[string]string) {
	title := "新建审批"
	if sess.IsEdit() {
		title = "修改审批"
	}
	page := formPage{
		pageData:        newPageData(ctx, title),
		Mode:            sess.Mode(),
		ID:              sess.ID(),
		Ready:           sess.Ready(),
		Submitting:      sess.Submitting(),
		Images:          sess.Images(),
		Attachments:     sess.Attachments(),
		ImageLimit:      sess.ImageLimit(),
		AttachmentLimit: sess.AttachmentLimit(),
	}
	if sess.InitErr() != nil {
		page.InitError = T(ctx, "form.init_failed")
	}
	for _, f := range sess.Fields() {
		v := fieldView{
			Key:       f.Key(),
			Label:     f.Label(),
			Kind:      f.Widget.Kind(),
			Required:  f.Required(),
			MaxLength: f.MaxLength(),
			Count:     f.Widget.Count(sess.Get(f.Key())),
			Value:     sess.Input(f.Key()),
			Error:     errs[f.Key()],
			Fallback:  f.Fallback,
		}
		if d, ok := f.Widget.(form.DepartmentSelect); ok {
			v.Options = d.Options(sess.Get(f.Key()))
		}
		page.Fields = append(page.Fields, v)
	}
	ctx.HTML(status, "form.html", page)
}

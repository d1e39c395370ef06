package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/api"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
)

// fakeBackend 内存中的后端
type fakeBackend struct {
	mu        sync.Mutex
	rows      []model.ApprovalRecord
	created   []model.Payload
	passed    []string
	updated   map[string]model.Payload
	createErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{rows: []model.ApprovalRecord{
		{ID: "1", ProjectName: "服务器采购", Content: "采购两台服务器", Department: []string{"tech", "be"}, ExecuteDate: "2025-11-20", Status: model.StatusPending, CreateTime: "2025-11-18 10:00:00"},
		{ID: "2", ProjectName: "年度团建", Content: "团建活动", Department: []string{"hr", "rec"}, ExecuteDate: "2025-11-25", Status: model.StatusApproved, CreateTime: "2025-11-15 09:30:00", UpdateTime: "2025-11-16 14:00:00"},
	}}
}

func (b *fakeBackend) List(ctx context.Context, q client.ListQuery) (*client.ListResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := append([]model.ApprovalRecord(nil), b.rows...)
	return &client.ListResult{Data: rows, Total: len(rows)}, nil
}

func (b *fakeBackend) setStatus(id string, st model.Status) {
	for i := range b.rows {
		if b.rows[i].ID == id {
			b.rows[i].Status = st
		}
	}
}

func (b *fakeBackend) Pass(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passed = append(b.passed, id)
	b.setStatus(id, model.StatusApproved)
	return nil
}

func (b *fakeBackend) Reject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setStatus(id, model.StatusRejected)
	return nil
}

func (b *fakeBackend) Schema(ctx context.Context) ([]model.FieldSchema, error) {
	return model.DefaultSchema(), nil
}

func (b *fakeBackend) Detail(ctx context.Context, id string) (*model.ApprovalRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.rows {
		if r.ID == id {
			// 经过 JSON 往返,与真实客户端一样保留原始文档
			data, err := json.Marshal(r)
			if err != nil {
				return nil, err
			}
			var rec model.ApprovalRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, err
			}
			return &rec, nil
		}
	}
	return nil, &client.StatusError{Operation: "detail", StatusCode: http.StatusNotFound}
}

func (b *fakeBackend) Create(ctx context.Context, p model.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return b.createErr
	}
	b.created = append(b.created, p)
	return nil
}

func (b *fakeBackend) Update(ctx context.Context, id string, p model.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updated == nil {
		b.updated = map[string]model.Payload{}
	}
	b.updated[id] = p
	return nil
}

func (b *fakeBackend) createCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.created)
}

// browser 保存 cookie 的测试客户端
type browser struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

var csrfPattern = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	if m := csrfPattern.FindStringSubmatch(w.Body.String()); m != nil {
		b.csrf = m[1]
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/html")
	return b.do(req)
}

func (b *browser) post(path string, values url.Values) *httptest.ResponseRecorder {
	if values == nil {
		values = url.Values{}
	}
	if b.csrf != "" && values.Get("_csrf") == "" {
		values.Set("_csrf", b.csrf)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return b.do(req)
}

// uploadFile 批量上传中的一个文件
type uploadFile struct {
	name string
	data []byte
}

func (b *browser) upload(field, name string, data []byte, action string) *httptest.ResponseRecorder {
	return b.uploadMany(field, action, uploadFile{name: name, data: data})
}

func (b *browser) uploadMany(field, action string, files ...uploadFile) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(b.t, mw.WriteField("_csrf", b.csrf))
	require.NoError(b.t, mw.WriteField("action", action))
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(b.t, err)
		_, err = io.Copy(fw, bytes.NewReader(f.data))
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/form", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "text/html")
	return b.do(req)
}

func setupPages(t *testing.T) (*browser, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := newFakeBackend()
	cfg := config.Default()
	logger := api.NewLogger()
	store := shell.NewStore(time.Hour, func() *listview.View {
		return listview.New(backend, cfg.List.PageSize, logger)
	})
	t.Cleanup(store.Close)

	router, err := api.SetupRoutes(api.Dependencies{
		Config:  cfg,
		Backend: backend,
		Store:   store,
		Logger:  logger,
	})
	require.NoError(t, err)

	return &browser{t: t, router: router, cookies: map[string]*http.Cookie{}}, backend
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestListPage_RendersRows 列表页展示记录,申请人可见新建按钮与角色切换
func TestListPage_RendersRows(t *testing.T) {
	b, _ := setupPages(t)

	w := b.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "服务器采购")
	assert.Contains(t, body, "技术部 / 后端组")
	assert.Contains(t, body, "待审批")
	assert.Contains(t, body, `id="create"`)
	assert.Contains(t, body, `id="role-switch"`)
	assert.NotEmpty(t, b.csrf)
}

// TestRoleSwitch_HiddenOnForm 新建页不显示角色切换
func TestRoleSwitch_HiddenOnForm(t *testing.T) {
	b, _ := setupPages(t)

	w := b.get("/create")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `id="role-switch"`)
	assert.Contains(t, w.Body.String(), "审批项目")

	w = b.get("/edit/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `id="role-switch"`)
	assert.Contains(t, w.Body.String(), `value="服务器采购"`)
}

// TestFormSubmit_RequiredFieldsBlockCreate 必填项为空时不调用创建接口
func TestFormSubmit_RequiredFieldsBlockCreate(t *testing.T) {
	b, backend := setupPages(t)
	b.get("/create")

	w := b.post("/form", url.Values{"action": {"submit"}, "projectName": {""}, "content": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "请输入审批项目")
	assert.Contains(t, w.Body.String(), "请输入审批内容")
	assert.Equal(t, 0, backend.createCount())
}

// TestFormSubmit_Create 提交成功后回到列表并提示
func TestFormSubmit_Create(t *testing.T) {
	b, backend := setupPages(t)
	b.get("/create")

	w := b.post("/form", url.Values{
		"action":      {"submit"},
		"projectName": {"办公用品采购"},
		"content":     {"采购打印纸"},
		"department":  {"tech/fe/infra"},
		"executeDate": {"2025-12-01"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	require.Equal(t, 1, backend.createCount())
	p := backend.created[0]
	assert.Equal(t, "办公用品采购", p["projectName"])
	assert.Equal(t, []string{"tech", "fe", "infra"}, p["department"])
	assert.Equal(t, "2025-12-01", p["executeDate"])

	w = b.get("/")
	assert.Contains(t, w.Body.String(), "创建成功")
}

// TestFormSubmit_BackendFailureKeepsDraft 后端失败时保留已填写内容
func TestFormSubmit_BackendFailureKeepsDraft(t *testing.T) {
	b, backend := setupPages(t)
	backend.createErr = errors.New("boom")
	b.get("/create")

	w := b.post("/form", url.Values{
		"action":      {"submit"},
		"projectName": {"重试项目"},
		"content":     {"内容"},
		"department":  {"hr/rec"},
		"executeDate": {"2025-12-02"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "提交失败")
	assert.Contains(t, w.Body.String(), `value="重试项目"`)

	w = b.get("/form")
	assert.Contains(t, w.Body.String(), `value="重试项目"`)
}

// TestFormEdit_NonLeafDepartmentRoundTrip 后端存储的非叶子部门在修改页被选中并原样回传
func TestFormEdit_NonLeafDepartmentRoundTrip(t *testing.T) {
	b, backend := setupPages(t)
	backend.mu.Lock()
	backend.rows = append(backend.rows, model.ApprovalRecord{
		ID: "3", ProjectName: "前端重构", Content: "组件库升级", Department: []string{"tech", "fe"},
		ExecuteDate: "2025-12-10", Status: model.StatusPending, CreateTime: "2025-11-20 08:00:00",
	})
	backend.mu.Unlock()

	w := b.get("/edit/3")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="tech/fe" selected>技术部 / 前端组</option>`)
	assert.Contains(t, body, `<option value="tech/fe/infra" >`)

	w = b.post("/form", url.Values{
		"action":      {"submit"},
		"projectName": {"前端重构"},
		"content":     {"组件库升级"},
		"department":  {"tech/fe"},
		"executeDate": {"2025-12-10"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	p := backend.updated["3"]
	require.NotNil(t, p)
	assert.Equal(t, []string{"tech", "fe"}, p["department"])
}

// TestFormUpload_ImagePreviewAndRemove 暂存图片可预览与删除
func TestFormUpload_ImagePreviewAndRemove(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/create")

	w := b.upload("imageFile", "a.png", pngBytes(t), "upload-image")
	require.Equal(t, http.StatusOK, w.Code)
	m := regexp.MustCompile(`remove-image:([0-9a-f-]+)`).FindStringSubmatch(w.Body.String())
	require.NotNil(t, m)

	w = b.get("/form/preview/" + m[1])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = b.post("/form", url.Values{"action": {"remove-image:" + m[1]}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "remove-image:"+m[1])

	w = b.upload("imageFile", "a.txt", []byte("plain text"), "upload-image")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "文件类型不支持")
}

// TestFormUpload_BatchOverLimit 超出剩余数量的批量上传整批拒绝,中途失败时提示已接收数量
func TestFormUpload_BatchOverLimit(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/create")
	removeImage := regexp.MustCompile(`remove-image:[0-9a-f-]+`)

	img := uploadFile{name: "a.png", data: pngBytes(t)}
	w := b.uploadMany("imageFile", "upload-image", img, img, img, img, img, img)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "已达到上传数量上限")
	assert.Empty(t, removeImage.FindAllString(w.Body.String(), -1))

	w = b.uploadMany("imageFile", "upload-image", img, uploadFile{name: "b.txt", data: []byte("plain text")})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "已接收 1 个文件,b.txt 未上传: 文件类型不支持")
	assert.Len(t, removeImage.FindAllString(w.Body.String(), -1), 1)
}

// TestListPage_DiscardsForm 回到列表时丢弃表单
func TestListPage_DiscardsForm(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/create")
	b.get("/")

	w := b.get("/form")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

// TestApproverFlow 审批员在详情中审批
func TestApproverFlow(t *testing.T) {
	b, backend := setupPages(t)
	b.get("/")

	// 申请人看不到审批按钮,直接提交也被拒绝
	w := b.get("/detail/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `id="approve"`)
	w = b.post("/detail/1/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = b.post("/role", url.Values{"role": {"approver"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = b.get("/")
	assert.Contains(t, w.Body.String(), "当前角色:审批员")
	assert.NotContains(t, w.Body.String(), `id="create"`)
	assert.NotContains(t, w.Body.String(), `class="edit"`)

	w = b.get("/detail/2")
	assert.NotContains(t, w.Body.String(), `id="approve"`)

	w = b.get("/detail/1")
	assert.Contains(t, w.Body.String(), `id="approve"`)
	assert.Contains(t, w.Body.String(), `id="reject"`)

	w = b.post("/detail/1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "操作成功")
	assert.NotContains(t, w.Body.String(), `id="detail"`)
	assert.Equal(t, []string{"1"}, backend.passed)
}

// TestDetail_UnknownID 当前页没有的审批单返回 404
func TestDetail_UnknownID(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/")

	w := b.get("/detail/404")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "审批单不存在或已刷新")
}

// TestCSRF_RejectsMissingToken 缺少令牌的表单提交带提示返回列表
func TestCSRF_RejectsMissingToken(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/")

	w := b.post("/search", url.Values{"_csrf": {"forged"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = b.get("/")
	assert.Contains(t, w.Body.String(), "页面已过期")

	req := httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = b.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestSearch_InvalidFilter 非法筛选条件返回 400
func TestSearch_InvalidFilter(t *testing.T) {
	b, _ := setupPages(t)
	b.get("/")

	w := b.post("/search", url.Values{"status": {"unknown"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "请求错误")
}

// TestNoRoute_HTML 未知路径渲染错误页
func TestNoRoute_HTML(t *testing.T) {
	b, _ := setupPages(t)

	w := b.get("/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "资源未找到")
}

// TestAssets 内嵌静态资源
func TestAssets(t *testing.T) {
	b, _ := setupPages(t)

	w := b.get("/assets/app.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".topbar")
}

package form

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/i18n"
	"github.com/xjj0211/approval-frontend/internal/metrics"
	"github.com/xjj0211/approval-frontend/internal/model"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotReady 表单尚未初始化或初始化失败
	ErrNotReady = errors.New("form is not ready")
	// ErrBusy 正在提交
	ErrBusy = errors.New("submission already in progress")
)

// InitError 初始化失败
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return "form initialization failed: " + e.Err.Error() }

func (e *InitError) Unwrap() error { return e.Err }

// Options 表单会话选项
type Options struct {
	Tree           *model.DepartmentTree
	MaxImages      int
	MaxAttachments int
	MaxUploadBytes int64
	Encoder        Encoder
	Translator     i18n.Translator
	Logger         logrus.FieldLogger
}

func (o *Options) defaults() {
	if o.Tree == nil {
		o.Tree = model.DefaultDepartmentTree()
	}
	if o.MaxImages <= 0 {
		o.MaxImages = 5
	}
	if o.MaxAttachments <= 0 {
		o.MaxAttachments = 1
	}
	if o.Encoder == nil {
		o.Encoder = DataURIEncoder{}
	}
	if o.Translator == nil {
		o.Translator = i18n.Default().For(i18n.DefaultLang)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Session 一次新建或修改的表单会话,拥有草稿与两个暂存列表
type Session struct {
	backend client.FormBackend
	opts    Options
	id      string

	mu          sync.Mutex
	fields      []Field
	draft       *Draft
	bindErrs    map[string]string
	images      *StagingList
	attachments *StagingList
	ready       bool
	initErr     error
	submitting  bool
}

// NewSession 创建表单会话,id 为空时为新建模式
func NewSession(backend client.FormBackend, id string, opts Options) *Session {
	opts.defaults()
	return &Session{
		backend:     backend,
		opts:        opts,
		id:          id,
		draft:       NewDraft(),
		bindErrs:    map[string]string{},
		images:      NewStagingList(KindImage, opts.MaxImages, opts.MaxUploadBytes),
		attachments: NewStagingList(KindAttachment, opts.MaxAttachments, opts.MaxUploadBytes),
	}
}

// ID 修改模式下的审批单 ID
func (s *Session) ID() string { return s.id }

// IsEdit 是否为修改模式
func (s *Session) IsEdit() bool { return s.id != "" }

// Mode create 或 update
func (s *Session) Mode() string {
	if s.IsEdit() {
		return "update"
	}
	return "create"
}

// Load 并发获取表单结构与(修改模式下)审批单详情,两者都完成后才构建表单
func (s *Session) Load(ctx context.Context) error {
	var (
		schema []model.FieldSchema
		record *model.ApprovalRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schema, err = s.backend.Schema(gctx)
		return err
	})
	if s.IsEdit() {
		g.Go(func() error {
			var err error
			record, err = s.backend.Detail(gctx, s.id)
			return err
		})
	}
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.initErr = &InitError{Err: err}
		s.ready = false
		s.opts.Logger.WithError(err).WithField("id", s.id).Warn("form initialization failed")
		return s.initErr
	}

	s.fields = Build(schema, s.opts.Tree, s.opts.Translator)
	for _, f := range s.fields {
		s.draft.Set(f.Key(), f.Widget.Zero())
	}
	if record != nil {
		s.populate(record)
	}
	s.initErr = nil
	s.ready = true
	return nil
}

// populate 用已有记录填充草稿与暂存列表
func (s *Session) populate(rec *model.ApprovalRecord) {
	raw := rec.Raw
	for _, f := range s.fields {
		s.draft.Set(f.Key(), f.Widget.Decode(gjson.GetBytes(raw, escapePath(f.Key()))))
	}
	for i, u := range rec.Images {
		s.images.AddPersisted(fmt.Sprintf("img-%d", i), u)
	}
	for _, a := range rec.Attachments {
		s.attachments.AddPersisted(a.Name, a.URL)
	}
}

// escapePath 转义 gjson 路径中的特殊字符
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', '(', ')', '[', ']', '{', '}', ',', ':', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ready 初始化是否完成
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// InitErr 初始化错误
func (s *Session) InitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initErr
}

// Submitting 是否正在提交
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Fields 已构建的字段
func (s *Session) Fields() []Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Field(nil), s.fields...)
}

// Get 读取草稿取值
func (s *Session) Get(field string) Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Get(field)
}

// Set 写入草稿取值,取值类型必须与字段组件一致
func (s *Session) Set(field string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.field(field)
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	if !sameKind(f.Widget.Zero(), v) {
		return fmt.Errorf("field %q: value type %T does not match widget %s", field, v, f.Widget.Kind())
	}
	s.draft.Set(field, v)
	delete(s.bindErrs, field)
	return nil
}

func sameKind(a, b Value) bool {
	switch a.(type) {
	case TextValue:
		_, ok := b.(TextValue)
		return ok
	case PathValue:
		_, ok := b.(PathValue)
		return ok
	case DateValue:
		_, ok := b.(DateValue)
		return ok
	}
	return false
}

func (s *Session) field(key string) (Field, bool) {
	for _, f := range s.fields {
		if f.Key() == key {
			return f, true
		}
	}
	return Field{}, false
}

// Input 渲染到 HTML 输入框的字符串
func (s *Session) Input(field string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.field(field)
	if !ok {
		return ""
	}
	return f.Widget.Input(s.draft.Get(field))
}

// Bind 将 HTML 表单提交的取值写入草稿,无法解析的取值记为字段错误
func (s *Session) Bind(values url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fields {
		if _, ok := values[f.Key()]; !ok {
			continue
		}
		raw := values.Get(f.Key())
		if _, bad := s.bindErrs[f.Key()]; !bad && raw == f.Widget.Input(s.draft.Get(f.Key())) {
			// 未修改的取值保持原样,后端存储的非叶子部门路径也能原样回传
			continue
		}
		v, err := f.Widget.Parse(raw)
		if err != nil {
			key := "form.invalid_date"
			if _, isDept := f.Widget.(DepartmentSelect); isDept {
				key = "form.invalid_dept"
			}
			s.bindErrs[f.Key()] = s.opts.Translator.T(key)
			s.draft.Set(f.Key(), f.Widget.Zero())
			continue
		}
		delete(s.bindErrs, f.Key())
		s.draft.Set(f.Key(), v)
	}
}

// Validate 按规则校验草稿
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() error {
	errs := map[string]string{}
	for k, msg := range s.bindErrs {
		errs[k] = msg
	}
	for _, f := range s.fields {
		if _, bad := errs[f.Key()]; bad {
			continue
		}
		if msg, ok := Check(f.Rules, f.Widget, s.draft.Get(f.Key())); !ok {
			errs[f.Key()] = msg
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// StageImage 暂存图片
func (s *Session) StageImage(name string, data []byte) (*StagedFile, error) {
	return s.stage(s.images, name, data)
}

// StageAttachment 暂存表格附件
func (s *Session) StageAttachment(name string, data []byte) (*StagedFile, error) {
	return s.stage(s.attachments, name, data)
}

func (s *Session) stage(l *StagingList, name string, data []byte) (*StagedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}
	f, err := l.Add(name, data)
	if err != nil {
		return nil, err
	}
	metrics.RecordStagedFile(string(l.Kind()))
	return f, nil
}

// RemoveImage 移除图片
func (s *Session) RemoveImage(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images.Remove(uid)
}

// RemoveAttachment 移除表格附件
func (s *Session) RemoveAttachment(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments.Remove(uid)
}

// Images 图片暂存列表快照
func (s *Session) Images() []*StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images.Files()
}

// Attachments 表格附件暂存列表快照
func (s *Session) Attachments() []*StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments.Files()
}

// ImageLimit 图片数量上限
func (s *Session) ImageLimit() int { return s.images.Limit() }

// AttachmentLimit 表格附件数量上限
func (s *Session) AttachmentLimit() int { return s.attachments.Limit() }

// Preview 查找图片用于预览
func (s *Session) Preview(uid string) (*StagedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images.Get(uid)
}

// Payload 组装提交载荷:{...表单取值, 日期字段 YYYY-MM-DD, images, attachments}
func (s *Session) Payload(ctx context.Context) (model.Payload, error) {
	s.mu.Lock()
	fields := append([]Field(nil), s.fields...)
	draft := s.draft.Clone()
	images := s.images.clone()
	attachments := s.attachments.clone()
	s.mu.Unlock()
	return s.buildPayload(ctx, fields, draft, images, attachments)
}

func (s *Session) buildPayload(ctx context.Context, fields []Field, draft *Draft, images, attachments *StagingList) (model.Payload, error) {
	p := model.Payload{}
	for _, f := range fields {
		v := draft.Get(f.Key())
		if v == nil {
			v = f.Widget.Zero()
		}
		if enc, ok := f.Widget.Encode(v); ok {
			p[f.Key()] = enc
		}
	}

	imgs, err := resolveImages(ctx, s.opts.Encoder, images.Files())
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}
	atts, err := resolveAttachments(ctx, s.opts.Encoder, attachments.Files())
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	p["images"] = imgs
	p["attachments"] = atts
	return p, nil
}

// Submit 校验并提交。校验失败返回 *ValidationError 且不调用后端;后端失败时草稿与暂存列表保持不变
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := s.validateLocked(); err != nil {
		s.mu.Unlock()
		metrics.RecordFormSubmission(s.Mode(), "invalid")
		return err
	}
	s.submitting = true
	fields := append([]Field(nil), s.fields...)
	draft := s.draft.Clone()
	images := s.images.clone()
	attachments := s.attachments.clone()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	logger := s.opts.Logger.WithFields(logrus.Fields{"mode": s.Mode(), "id": s.id})
	p, err := s.buildPayload(ctx, fields, draft, images, attachments)
	if err != nil {
		metrics.RecordFormSubmission(s.Mode(), "error")
		logger.WithError(err).Warn("failed to build payload")
		return err
	}

	if s.IsEdit() {
		err = s.backend.Update(ctx, s.id, p)
	} else {
		err = s.backend.Create(ctx, p)
	}
	if err != nil {
		metrics.RecordFormSubmission(s.Mode(), "error")
		logger.WithError(err).Warn("form submission failed")
		return fmt.Errorf("%s approval: %w", s.Mode(), err)
	}
	metrics.RecordFormSubmission(s.Mode(), "success")
	logger.Info("form submitted")
	return nil
}

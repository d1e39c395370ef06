package shell

import (
	"sync"
	"time"

	"github.com/xjj0211/approval-frontend/internal/form"
	"github.com/xjj0211/approval-frontend/internal/listview"
)

// Workspace 一个浏览器会话拥有的视图状态
type Workspace struct {
	List *listview.View

	mu       sync.Mutex
	form     *form.Session
	lastSeen time.Time
}

// Form 当前表单会话,没有时返回 nil
func (w *Workspace) Form() *form.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// SetForm 替换表单会话
func (w *Workspace) SetForm(s *form.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form = s
}

// DiscardForm 离开表单时丢弃草稿与暂存文件
func (w *Workspace) DiscardForm() {
	w.SetForm(nil)
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

// Store 按会话 ID 保存工作区,空闲超过 TTL 的工作区被清理
type Store struct {
	newList func() *listview.View
	ttl     time.Duration
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewStore 创建工作区存储并启动清理 goroutine
func NewStore(ttl time.Duration, newList func() *listview.View) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &Store{
		newList:    newList,
		ttl:        ttl,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
		stop:       make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Get 获取会话工作区,不存在时创建
func (s *Store) Get(id string) *Workspace {
	s.mu.Lock()
	ws, ok := s.workspaces[id]
	if !ok {
		ws = &Workspace{List: s.newList()}
		s.workspaces[id] = ws
	}
	s.mu.Unlock()
	ws.touch(s.now())
	return ws
}

// Len 工作区数量
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

// Cleanup 清理空闲过期的工作区,返回清理数量
func (s *Store) Cleanup() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ws := range s.workspaces {
		if ws.idleSince(now) > s.ttl {
			delete(s.workspaces, id)
			removed++
		}
	}
	return removed
}

// Close 停止清理 goroutine
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) cleanupLoop() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

package notify

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

const historyCap = 50

// Center 管理用户可见的非阻塞通知：一个有界的 toast 队列（同屏最多
// toastLimit 条，最旧的在 ttl 后自动消失），外加一份尽力而为持久化的
// 历史列表（JSON 数组，最多 50 条）。持久化失败只记日志，不影响使用。
type Center struct {
	mu         sync.Mutex
	toastLimit int
	ttl        time.Duration
	path       string

	toasts  []model.Notification
	history []model.Notification
	timers  map[string]*time.Timer
}

func NewCenter(path string, toastLimit int, ttl time.Duration) *Center {
	if toastLimit <= 0 {
		toastLimit = 5
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	c := &Center{
		toastLimit: toastLimit,
		ttl:        ttl,
		path:       path,
		timers:     make(map[string]*time.Timer),
	}
	c.load()
	return c
}

// Push 发布一条通知：进 toast 队列（超限淘汰最旧）并写入历史。
func (c *Center) Push(typ, title, message string) model.Notification {
	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, n)
	for len(c.toasts) > c.toastLimit {
		c.stopTimerLocked(c.toasts[0].ID)
		c.toasts = c.toasts[1:]
	}
	c.timers[n.ID] = time.AfterFunc(c.ttl, func() { c.Dismiss(n.ID) })

	c.history = append(c.history, n)
	if len(c.history) > historyCap {
		c.history = c.history[len(c.history)-historyCap:]
	}
	c.mu.Unlock()

	c.save()
	return n
}

// Dismiss 关闭一条 toast（用户手动或定时器触发）
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked(id)
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return
		}
	}
}

// Toasts 当前可见的 toast 快照
func (c *Center) Toasts() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// History 历史通知快照（含已持久化再加载的）
func (c *Center) History() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, len(c.history))
	copy(out, c.history)
	return out
}

// MarkRead 标记历史通知为已读
func (c *Center) MarkRead(id string) {
	c.mu.Lock()
	for i := range c.history {
		if c.history[i].ID == id {
			c.history[i].Read = true
			break
		}
	}
	c.mu.Unlock()
	c.save()
}

// Close 停掉所有未触发的自动消失定时器
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) stopTimerLocked(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
}

// load 从本地文件恢复历史通知。时间戳是 ISO-8601，由 time.Time 的
// JSON 编解码直接处理。文件缺失或损坏都按空历史处理。
func (c *Center) load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var hist []model.Notification
	if err := json.Unmarshal(data, &hist); err != nil {
		logger.Logger.Debug("通知历史文件损坏，忽略", zap.String("path", c.path), zap.Error(err))
		return
	}
	if len(hist) > historyCap {
		hist = hist[len(hist)-historyCap:]
	}
	c.history = hist
}

// save 尽力而为地落盘，失败不向用户暴露
func (c *Center) save() {
	if c.path == "" {
		return
	}
	c.mu.Lock()
	data, err := json.MarshalIndent(c.history, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		logger.Logger.Debug("通知历史写入失败", zap.String("path", c.path), zap.Error(err))
	}
}

package console

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/internal/notify"
)

// Console 是单个应用会话的核心状态：任务注册表、日志缓冲、过滤视图
// 和通知中心。整个进程只构造一个实例，在入口处创建并注入给各消费方，
// 展示层只读取它暴露的视图、通过它暴露的动作做变更。
type Console struct {
	Tasks  *TaskRegistry
	Logs   *LogStore
	Notify *notify.Center

	view      *LogView
	connected atomic.Bool

	mu     sync.Mutex
	filter FilterState
}

func New(logCapacity int, center *notify.Center) *Console {
	logs := NewLogStore(logCapacity)
	return &Console{
		Tasks:  NewTaskRegistry(),
		Logs:   logs,
		Notify: center,
		view:   NewLogView(logs),
		filter: NewFilterState(),
	}
}

// VisibleLogs 当前过滤状态下可见的日志（记忆化）
func (c *Console) VisibleLogs() []model.LogEntry {
	return c.view.Visible(c.Filter())
}

// Filter 返回过滤状态的深拷贝
func (c *Console) Filter() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := FilterState{
		ActiveTab:     c.filter.ActiveTab,
		SourceFilters: make(map[string]bool, len(c.filter.SourceFilters)),
		LevelFilters:  make(map[string]bool, len(c.filter.LevelFilters)),
		SearchQuery:   c.filter.SearchQuery,
	}
	for k, v := range c.filter.SourceFilters {
		f.SourceFilters[k] = v
	}
	for k, v := range c.filter.LevelFilters {
		f.LevelFilters[k] = v
	}
	return f
}

// SetActiveTab 切换视图页签
func (c *Console) SetActiveTab(tab Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.ActiveTab = tab
}

// ToggleSourceFilter 翻转某来源的开关，未设置过的来源视为开
func (c *Console) ToggleSourceFilter(source string) {
	key := strings.ToLower(source)
	c.mu.Lock()
	defer c.mu.Unlock()
	enabled, ok := c.filter.SourceFilters[key]
	if !ok {
		enabled = true
	}
	c.filter.SourceFilters[key] = !enabled
}

// ToggleLevelFilter 翻转某级别的开关，未设置过的级别视为开
func (c *Console) ToggleLevelFilter(level string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	enabled, ok := c.filter.LevelFilters[level]
	if !ok {
		enabled = true
	}
	c.filter.LevelFilters[level] = !enabled
}

// SetSearchQuery 设置全文搜索串
func (c *Console) SetSearchQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.SearchQuery = q
}

// ResetFilters 恢复放行一切的缺省状态
func (c *Console) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = NewFilterState()
}

// ClearLogs 用户显式清空日志
func (c *Console) ClearLogs() {
	c.Logs.Clear()
}

// ExportLogs 把当前日志快照导出为文本文件，返回写出的条目数
func (c *Console) ExportLogs(path string) (int, error) {
	entries := c.Logs.Export()
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Timestamp.Format("2006-01-02 15:04:05"))
		b.WriteString(" [")
		b.WriteString(e.FilterLevel())
		b.WriteString("] [")
		b.WriteString(e.Source)
		b.WriteString("] ")
		b.WriteString(e.Message)
		if e.Command != "" {
			b.WriteString("  $ ")
			b.WriteString(e.Command)
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("导出日志失败: %w", err)
	}
	return len(entries), nil
}

// SetConnected 由实时适配器在连接状态变化时调用。
// 断线不清理任何已有状态，只影响这面指示旗。
func (c *Console) SetConnected(up bool) {
	c.connected.Store(up)
}

// Connected 实时通道当前是否在线（被动指示，供界面展示）
func (c *Console) Connected() bool {
	return c.connected.Load()
}

package console

import (
	"sort"
	"strings"
	"sync"

	"github.com/hunter-console/internal/model"
)

// Tab 日志视图页签，按来源分组预先收窄
type Tab string

const (
	TabUnified Tab = "unified"
	TabBackend Tab = "backend"
	TabCelery  Tab = "celery"
	TabTools   Tab = "tools"
)

// 各页签固定的来源集合。unified 不做收窄，不在表中。
var tabSources = map[Tab]map[string]struct{}{
	TabBackend: {"backend": {}, "api": {}, "database": {}},
	TabCelery:  {"celery": {}, "worker": {}},
	TabTools: {
		"scanning": {}, "nikto": {}, "nmap": {}, "nuclei": {}, "sqlmap": {},
		"zap": {}, "testssl": {}, "whatweb": {}, "dalfox": {},
	},
}

// FilterState 过滤器状态。缺省状态放行所有条目：来源/级别映射里
// 不存在的键视为 true，切换只做减法。
type FilterState struct {
	ActiveTab     Tab
	SourceFilters map[string]bool // 键为小写来源名
	LevelFilters  map[string]bool // 键为 FilterLevel 词表取值
	SearchQuery   string
}

// NewFilterState 返回放行一切的缺省状态
func NewFilterState() FilterState {
	return FilterState{
		ActiveTab:     TabUnified,
		SourceFilters: make(map[string]bool),
		LevelFilters:  make(map[string]bool),
	}
}

// Admits 判断条目是否通过全部四级过滤（页签、来源、级别、搜索）。
// 四级都是纯谓词，条目可见当且仅当同时通过。
func (f FilterState) Admits(e model.LogEntry) bool {
	source := strings.ToLower(e.Source)

	if f.ActiveTab != TabUnified && f.ActiveTab != "" {
		allowed, ok := tabSources[f.ActiveTab]
		if ok {
			if _, in := allowed[source]; !in {
				return false
			}
		}
	}
	if enabled, ok := f.SourceFilters[source]; ok && !enabled {
		return false
	}
	if enabled, ok := f.LevelFilters[e.FilterLevel()]; ok && !enabled {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		if !strings.Contains(strings.ToLower(e.Message), q) &&
			!strings.Contains(source, q) &&
			!strings.Contains(strings.ToLower(e.Raw), q) {
			return false
		}
	}
	return true
}

// VisibleLogs 纯函数：对给定条目应用过滤状态
func VisibleLogs(entries []model.LogEntry, f FilterState) []model.LogEntry {
	var out []model.LogEntry
	for _, e := range entries {
		if f.Admits(e) {
			out = append(out, e)
		}
	}
	return out
}

// Key 过滤状态的规范化字符串，作为记忆化键。
// 只编码被关掉的开关，保证等价状态得到相同的键。
func (f FilterState) Key() string {
	var b strings.Builder
	b.WriteString(string(f.ActiveTab))
	b.WriteByte('|')
	b.WriteString(disabledKeys(f.SourceFilters))
	b.WriteByte('|')
	b.WriteString(disabledKeys(f.LevelFilters))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(f.SearchQuery)))
	return b.String()
}

func disabledKeys(m map[string]bool) string {
	var off []string
	for k, enabled := range m {
		if !enabled {
			off = append(off, k)
		}
	}
	sort.Strings(off)
	return strings.Join(off, ",")
}

// LogView 带记忆化的过滤视图：同一 (过滤状态, 存储版本) 组合直接
// 返回缓存结果，避免搜索框每敲一个键都全量重算。
type LogView struct {
	store *LogStore

	mu          sync.Mutex
	lastKey     string
	lastVersion uint64
	cached      []model.LogEntry
	valid       bool
}

func NewLogView(store *LogStore) *LogView {
	return &LogView{store: store}
}

// Visible 返回过滤后的条目。返回值是缓存的共享切片，调用方只读。
func (v *LogView) Visible(f FilterState) []model.LogEntry {
	key := f.Key()
	snapshot, version := v.store.Snapshot()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.valid && key == v.lastKey && version == v.lastVersion {
		return v.cached
	}
	v.cached = VisibleLogs(snapshot, f)
	v.lastKey = key
	v.lastVersion = version
	v.valid = true
	return v.cached
}

package console

import (
	"fmt"
	"sync"
	"time"

	"github.com/hunter-console/internal/model"
)

const DefaultLogCapacity = 1000

// LogStore 只追加、容量有界的日志缓冲区。条目按时间顺序尾部追加，
// 超出容量从头部淘汰最旧条目。条目存入后不再修改。
// version 在每次写入后递增，供过滤结果按 (过滤状态, 版本) 记忆化。
type LogStore struct {
	mu       sync.RWMutex
	entries  []model.LogEntry
	capacity int
	version  uint64
	seq      uint64
}

func NewLogStore(capacity int) *LogStore {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogStore{capacity: capacity}
}

// Append 追加一条日志，永不失败：缺失字段按尽力而为的形态补齐
// （级别缺省 INFO，时间缺省当前时刻，ID 按时间戳+序号生成）。
func (s *LogStore) Append(e model.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Severity == "" {
		e.Severity = model.SeverityInfo
	}
	if e.Kind == "" {
		e.Kind = model.KindMessage
	}
	if e.Source == "" {
		e.Source = "backend"
	}
	s.seq++
	if e.ID == "" {
		e.ID = fmt.Sprintf("%d-%06d", e.Timestamp.UnixNano(), s.seq)
	}

	s.entries = append(s.entries, e)
	if len(s.entries) > s.capacity {
		// 重新分配而不是切片别名，避免底层数组只增不减
		trimmed := make([]model.LogEntry, s.capacity)
		copy(trimmed, s.entries[len(s.entries)-s.capacity:])
		s.entries = trimmed
	}
	s.version++
}

// Clear 清空缓冲区（用户显式"清除日志"动作）
func (s *LogStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.version++
}

// Export 返回当前内容的独立副本，可安全用于序列化落盘
func (s *LogStore) Export() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Snapshot 返回副本和对应的版本号，供记忆化使用
func (s *LogStore) Snapshot() ([]model.LogEntry, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out, s.version
}

// Query 对调用时刻的快照做谓词过滤
func (s *LogStore) Query(pred func(model.LogEntry) bool) []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LogEntry
	for _, e := range s.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Version 当前版本号，任何写入（包括 Clear）都会使其递增
func (s *LogStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len 当前条目数
func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

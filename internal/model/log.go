package model

import (
	"strings"
	"time"
)

// Severity 日志严重级别。上游界面历史上把 success/command 与严重级别
// 混在同一个枚举里，这里拆成正交的 Severity + EntryKind 两个字段，
// 再由 FilterLevel 折叠回过滤器使用的封闭词表。
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// EntryKind 条目种类：普通消息、成功提示、命令回显
type EntryKind string

const (
	KindMessage EntryKind = "message"
	KindSuccess EntryKind = "success"
	KindCommand EntryKind = "command"
)

// FilterLevels 过滤器暴露的全部级别词表，顺序即界面展示顺序
var FilterLevels = []string{
	string(SeverityDebug),
	string(SeverityInfo),
	string(SeverityWarning),
	string(SeverityError),
	"success",
	"command",
}

// LogEntry 聚合日志流中的一行。条目一经写入不再修改，
// 更新永远以追加新条目的方式表达。
// TaskID 是指向 Task 的弱引用（只存 id，按需查找），日志条目可以
// 在任务被清理后继续存在。
type LogEntry struct {
	ID        string    `json:"id"` // 时间戳+序号，保证稳定排序
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Kind      EntryKind `json:"kind"`
	Source    string    `json:"source"` // backend / celery / nmap / nikto ...
	Message   string    `json:"message"`
	Command   string    `json:"command,omitempty"` // 命令回显条目携带的字面命令行
	TaskID    string    `json:"taskId,omitempty"`
	Raw       string    `json:"raw,omitempty"` // 原始载荷，参与全文搜索
}

// FilterLevel 返回该条目在过滤词表中的取值：
// 命令回显和成功提示优先于严重级别。
func (e LogEntry) FilterLevel() string {
	switch e.Kind {
	case KindCommand:
		return "command"
	case KindSuccess:
		return "success"
	default:
		return string(e.Severity)
	}
}

// ParseSeverity 宽容地解析级别字符串，无法识别时按 INFO 处理
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return SeverityDebug
	case "WARNING", "WARN":
		return SeverityWarning
	case "ERROR", "CRITICAL":
		return SeverityError
	case "INFO", "":
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

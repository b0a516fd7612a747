package model

import "time"

// 实时通道下发的事件类型
const (
	EventScanProgress = "scan-progress"
	EventNotification = "notification"
)

// ScanProgressEvent 扫描进度事件的规范化形态。线上的原始事件
// 形状并不统一，由实时适配器宽容地矫正到这里。
type ScanProgressEvent struct {
	ScanID    string
	Progress  int
	Status    string
	Message   string
	Data      string // 原始附加数据，序列化后的字符串
	Timestamp time.Time
}

// NotificationEvent 通知事件的规范化形态
type NotificationEvent struct {
	ID        string
	Level     string
	Title     string
	Message   string
	Timestamp time.Time
}

package model

import "time"

// Notification 用户可见的非阻塞通知。会以 JSON 数组形式尽力持久化到
// 本地文件（最多保留 50 条），时间戳序列化为 ISO-8601。
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // info / success / warning / error
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

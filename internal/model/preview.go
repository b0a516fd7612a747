package model

// CommandPreview 是后端对一次工具调用的无副作用解析结果。
// 每次 RequestPreview 都会新建，确认、取消或被更新的请求顶替后即丢弃，
// 绝不跨确认缓存。CommandString 必须原样展示给用户。
type CommandPreview struct {
	ToolName      string            `json:"toolName"`
	Category      string            `json:"category"`
	Parameters    map[string]string `json:"parameters"`
	CommandString string            `json:"commandString"`
	Warnings      []string          `json:"warnings"`
}

// ExecuteAck 执行端点的确认响应
type ExecuteAck struct {
	ScanID  string `json:"scan_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

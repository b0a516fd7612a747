package dto

// ToolRequest 预览/执行端点共用的请求体。Parameters 至少要有 target。
type ToolRequest struct {
	WorkspaceID string            `json:"workspace_id" binding:"required"`
	Parameters  map[string]string `json:"parameters" binding:"required"`
}

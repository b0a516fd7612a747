package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// Client 面向工具编排后端的 HTTP 客户端，只覆盖本核心消费的两个
// 端点：预览和执行。后端统一返回 {code, msg, data} 信封，code 为 0
// 表示成功。
type Client struct {
	base      string
	workspace string
	http      *http.Client
}

func NewClient(baseURL, workspaceID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:      baseURL,
		workspace: workspaceID,
		http:      &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

type toolRequest struct {
	WorkspaceID string            `json:"workspace_id"`
	Parameters  map[string]string `json:"parameters"`
}

// Preview 请求后端把一次工具调用解析成字面命令行。纯读操作，
// 对目标系统没有任何副作用。
func (c *Client) Preview(ctx context.Context, tool string, params map[string]string) (*model.CommandPreview, error) {
	var preview model.CommandPreview
	url := fmt.Sprintf("%s/api/v1/tools/%s/preview", c.base, tool)
	if err := c.post(ctx, url, toolRequest{WorkspaceID: c.workspace, Parameters: params}, &preview); err != nil {
		return nil, fmt.Errorf("预览请求失败: %w", err)
	}
	logger.Logger.Debug("收到命令预览",
		zap.String("tool", tool), zap.String("command", preview.CommandString))
	return &preview, nil
}

// Execute 提交已确认的工具调用，后端受理后返回 scan_id。
// 调用方必须先经过预览确认流程，这里不做任何兜底。
func (c *Client) Execute(ctx context.Context, tool string, params map[string]string) (*model.ExecuteAck, error) {
	var ack model.ExecuteAck
	url := fmt.Sprintf("%s/api/v1/tools/%s/execute", c.base, tool)
	if err := c.post(ctx, url, toolRequest{WorkspaceID: c.workspace, Parameters: params}, &ack); err != nil {
		return nil, fmt.Errorf("执行请求失败: %w", err)
	}
	return &ack, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("响应解析失败 (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("后端返回错误: %s", env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("响应数据解析失败: %w", err)
		}
	}
	return nil
}

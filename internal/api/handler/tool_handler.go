package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hunter-console/internal/api/dto"
	"github.com/hunter-console/internal/api/history"
	"github.com/hunter-console/internal/api/response"
	"github.com/hunter-console/internal/api/simulate"
	"github.com/hunter-console/internal/api/validator"
	"github.com/hunter-console/internal/model"
)

// toolSpec 工具目录里的一项：类别、命令模板、是否具有攻击性
type toolSpec struct {
	Category string
	Template string // {{target}} 占位，其余参数按 --key value 追加
	Risky    bool
	Warning  string
}

// 开发后端内置的工具目录
var toolCatalog = map[string]toolSpec{
	"nmap":     {Category: "scanning", Template: "nmap -sV -T4 {{target}}"},
	"nikto":    {Category: "scanning", Template: "nikto -h {{target}}"},
	"nuclei":   {Category: "scanning", Template: "nuclei -u {{target}} -severity medium,high,critical"},
	"whatweb":  {Category: "scanning", Template: "whatweb {{target}}"},
	"testssl":  {Category: "scanning", Template: "testssl.sh {{target}}"},
	"sqlmap":   {Category: "active", Template: "sqlmap -u {{target}} --batch", Risky: true, Warning: "sqlmap 会向目标注入攻击性载荷，请确认已获得授权"},
	"dalfox":   {Category: "active", Template: "dalfox url {{target}}", Risky: true, Warning: "dalfox 会向目标发送 XSS 探测载荷，请确认已获得授权"},
	"zap":      {Category: "active", Template: "zap-cli quick-scan {{target}}", Risky: true, Warning: "ZAP 主动扫描会对目标产生可观测的攻击流量"},
	"prowler":  {Category: "cloud", Template: "prowler aws --profile {{target}}"},
	"kerbrute": {Category: "active_directory", Template: "kerbrute userenum -d {{target}} users.txt", Risky: true, Warning: "kerbrute 枚举会在域控上留下认证失败记录"},
}

type ToolHandler struct {
	Hub     simulate.Broadcaster
	History *history.Store
}

func NewToolHandler(hub simulate.Broadcaster, hist *history.Store) *ToolHandler {
	return &ToolHandler{Hub: hub, History: hist}
}

// PreviewTool 把一次工具调用解析成字面命令行返回。无副作用：
// 不落库、不排队、不触碰目标。
func (h *ToolHandler) PreviewTool(c *gin.Context) {
	name := c.Param("tool")
	spec, ok := toolCatalog[name]
	if !ok {
		response.Fail(c, fmt.Sprintf("未知工具 '%s'", name))
		return
	}
	var req dto.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误", err)
		return
	}
	cmd, err := renderCommand(spec, req.Parameters)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}

	var warnings []string
	if spec.Risky {
		warnings = append(warnings, spec.Warning)
	}
	response.Ok(c, model.CommandPreview{
		ToolName:      name,
		Category:      spec.Category,
		Parameters:    req.Parameters,
		CommandString: cmd,
		Warnings:      warnings,
	})
}

// ExecuteTool 受理已确认的调用：登记历史、启动模拟扫描、返回 scan_id
func (h *ToolHandler) ExecuteTool(c *gin.Context) {
	name := c.Param("tool")
	spec, ok := toolCatalog[name]
	if !ok {
		response.Fail(c, fmt.Sprintf("未知工具 '%s'", name))
		return
	}
	var req dto.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误", err)
		return
	}
	cmd, err := renderCommand(spec, req.Parameters)
	if err != nil {
		response.Fail(c, err.Error())
		return
	}

	scanID := uuid.NewString()
	h.History.RecordScan(history.ScanRecord{
		ScanID:      scanID,
		WorkspaceID: req.WorkspaceID,
		Tool:        name,
		Target:      req.Parameters["target"],
		Command:     cmd,
	})
	go simulate.Run(h.Hub, req.WorkspaceID, scanID, name, req.Parameters["target"], 0)

	response.OkWithMessage(c, "扫描已受理", model.ExecuteAck{
		ScanID: scanID,
		Status: "accepted",
	})
}

// RecentScans 开发便利接口：最近受理过的扫描
func (h *ToolHandler) RecentScans(c *gin.Context) {
	records, err := h.History.RecentScans(50)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Ok(c, records)
}

// renderCommand 按模板渲染命令行：target 替换占位，
// 其余参数按键名排序后以 --key value 形式追加，保证渲染稳定。
func renderCommand(spec toolSpec, params map[string]string) (string, error) {
	target := params["target"]
	if err := validator.ValidateTarget(target); err != nil {
		return "", err
	}
	cmd := strings.ReplaceAll(spec.Template, "{{target}}", target)

	extra := make([]string, 0, len(params))
	for k := range params {
		if k != "target" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if v := params[k]; v != "" {
			cmd += fmt.Sprintf(" --%s %s", k, v)
		} else {
			cmd += fmt.Sprintf(" --%s", k)
		}
	}
	return cmd, nil
}

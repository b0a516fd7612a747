package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hunter-console/internal/backend"
	"github.com/hunter-console/internal/console"
	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/internal/notify"
	"github.com/hunter-console/internal/preview"
	"github.com/hunter-console/internal/realtime"
	"github.com/hunter-console/pkg/config"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// 工具名到模块分类的映射，任务列表按模块聚合
var toolModules = map[string]string{
	"nmap": "scanning", "nikto": "scanning", "nuclei": "scanning",
	"whatweb": "scanning", "testssl": "scanning",
	"sqlmap": "active", "dalfox": "active", "zap": "active",
	"prowler": "cloud", "kerbrute": "active_directory",
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	if err := logger.InitLogger(&cfg.Logger, "console", ""); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	center := notify.NewCenter(cfg.Console.NotifyPath, cfg.Console.ToastLimit,
		time.Duration(cfg.Console.ToastTTL)*time.Second)
	defer center.Close()

	con := console.New(cfg.Console.LogCapacity, center)
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.WorkspaceID,
		time.Duration(cfg.Backend.Timeout)*time.Second)
	coord := preview.NewCoordinator(client, center)

	dial := func(workspaceID string, onState realtime.StateFunc) (realtime.Channel, error) {
		return realtime.DialWorkspace(cfg.Backend.BaseURL, workspaceID,
			time.Duration(cfg.Realtime.RetryInterval)*time.Second, onState)
	}
	adapter := realtime.NewAdapter(con, cfg.Realtime.BurstThreshold, dial)
	if err := adapter.Subscribe(cfg.Backend.WorkspaceID); err != nil {
		logger.Logger.Error("订阅实时通道失败", zap.Error(err))
	}
	defer adapter.Close()

	fmt.Printf("hunter-console  工作区 %s  后端 %s\n", cfg.Backend.WorkspaceID, cfg.Backend.BaseURL)
	fmt.Println("输入 help 查看命令")

	repl(con, client, coord)
}

func repl(con *console.Console, client *backend.Client, coord *preview.Coordinator) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "run":
			if len(fields) < 3 {
				fmt.Println("用法: run <tool> <target> [key=value ...]")
				continue
			}
			runTool(con, client, coord, scanner, fields[1], fields[2], fields[3:])
		case "tasks":
			printTasks(con)
		case "logs":
			n := 20
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			printLogs(con, n)
		case "tab":
			if len(fields) > 1 {
				con.SetActiveTab(console.Tab(fields[1]))
			}
		case "source":
			if len(fields) > 1 {
				con.ToggleSourceFilter(fields[1])
			}
		case "level":
			if len(fields) > 1 {
				con.ToggleLevelFilter(fields[1])
			}
		case "search":
			con.SetSearchQuery(strings.Join(fields[1:], " "))
		case "reset":
			con.ResetFilters()
		case "clearlogs":
			con.ClearLogs()
		case "cleartasks":
			con.Tasks.ClearCompletedTasks()
		case "export":
			path := fmt.Sprintf("logs-%s.txt", time.Now().Format("20060102-150405"))
			if len(fields) > 1 {
				path = fields[1]
			}
			if n, err := con.ExportLogs(path); err != nil {
				fmt.Println("导出失败:", err)
			} else {
				fmt.Printf("已导出 %d 条日志到 %s\n", n, path)
			}
		case "toasts":
			for _, t := range con.Notify.Toasts() {
				fmt.Printf("  [%s] %s: %s\n", t.Type, t.Title, t.Message)
			}
		default:
			fmt.Println("未知命令，输入 help 查看")
		}
	}
}

// runTool 走完整的两段式握手：预览 -> 展示字面命令 -> 用户确认 -> 执行
func runTool(con *console.Console, client *backend.Client, coord *preview.Coordinator,
	scanner *bufio.Scanner, tool, target string, extra []string) {

	params := map[string]string{"target": target}
	for _, kv := range extra {
		if i := strings.IndexByte(kv, '='); i > 0 {
			params[kv[:i]] = kv[i+1:]
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := coord.RequestPreview(ctx, tool, params)
	if err != nil {
		fmt.Println("预览失败，已阻止执行:", err)
		return
	}

	fmt.Println("将要执行的命令:")
	fmt.Printf("  $ %s\n", p.CommandString)
	for _, w := range p.Warnings {
		fmt.Printf("  !! %s\n", w)
	}

	module := toolModules[tool]
	if module == "" {
		module = "scanning"
	}
	coord.OpenPreview(p, tool, func(ctx context.Context) error {
		taskID := con.Tasks.StartTask(module, fmt.Sprintf("%s %s", tool, target), "", target)
		con.Logs.Append(model.LogEntry{
			Kind:    model.KindCommand,
			Source:  tool,
			Message: fmt.Sprintf("执行 %s", tool),
			Command: p.CommandString,
			TaskID:  taskID,
		})
		ack, err := client.Execute(ctx, tool, params)
		if err != nil {
			con.Tasks.FailTask(taskID, err.Error())
			con.Notify.Push("error", "执行失败", err.Error())
			return err
		}
		sessionID := ack.ScanID
		con.Tasks.UpdateTask(taskID, console.TaskPatch{SessionID: &sessionID})
		fmt.Printf("已受理, scan_id=%s\n", ack.ScanID)
		return nil
	})

	fmt.Print("确认执行? [y/N] ")
	if !scanner.Scan() {
		coord.Cancel()
		return
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer != "y" && answer != "yes" {
		coord.Cancel()
		fmt.Println("已取消")
		return
	}
	if err := coord.Confirm(ctx); err != nil {
		fmt.Println("执行失败:", err)
	}
}

func printTasks(con *console.Console) {
	tasks := con.Tasks.Tasks()
	if len(tasks) == 0 {
		fmt.Println("暂无任务")
		return
	}
	for _, t := range tasks {
		fmt.Printf("  %-10s %3d%%  %-16s %-28s %s\n",
			t.Status, t.Progress, t.Module, t.Name, t.Message)
	}
	state := "已连接"
	if !con.Connected() {
		state = "已断开（数据可能不是最新）"
	}
	fmt.Printf("运行中 %d 个任务 | 实时通道: %s\n", con.Tasks.RunningCount(), state)
}

func printLogs(con *console.Console, n int) {
	visible := con.VisibleLogs()
	if len(visible) > n {
		visible = visible[len(visible)-n:]
	}
	for _, e := range visible {
		line := fmt.Sprintf("  %s [%s] [%s] %s",
			e.Timestamp.Format("15:04:05"), e.FilterLevel(), e.Source, e.Message)
		if e.Command != "" {
			line += "  $ " + e.Command
		}
		fmt.Println(line)
	}
	fmt.Printf("共 %d 条可见\n", len(visible))
}

func printHelp() {
	fmt.Print(`命令:
  run <tool> <target> [k=v ...]  预览并执行一次工具调用
  tasks                          任务列表与实时通道状态
  logs [n]                       最近 n 条可见日志（默认 20）
  tab <unified|backend|celery|tools>
  source <name> / level <name>   翻转来源/级别过滤
  search <text> / reset          全文搜索 / 重置过滤
  clearlogs / cleartasks         清空日志 / 清理已完成任务
  export [path] / toasts         导出日志 / 查看当前通知
  quit
`)
}

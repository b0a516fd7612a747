package preview

import (
	"context"
	"errors"
	"sync"

	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/internal/notify"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// PreviewClient 协调器需要的后端契约：只有无副作用的预览端点。
// 执行端点被刻意排除在外，执行调用由确认回调自己携带。
type PreviewClient interface {
	Preview(ctx context.Context, tool string, params map[string]string) (*model.CommandPreview, error)
}

// State 协调器状态：idle -> previewing -> executing -> idle
type State string

const (
	StateIdle       State = "idle"
	StatePreviewing State = "previewing"
	StateExecuting  State = "executing"
)

var ErrNoPending = errors.New("没有待确认的命令预览")

// ConfirmFunc 用户确认后真正发起执行的回调，自己负责错误上报
type ConfirmFunc func(ctx context.Context) error

type pendingPreview struct {
	preview   *model.CommandPreview
	tool      string
	onConfirm ConfirmFunc
}

// Coordinator 实现两段式"预览后确认"握手。每个发起界面各持有一个
// 实例（避免跨界面的预览串扰），同一时刻至多一条待确认预览，新的
// 预览请求会静默顶替旧的——只有用户最近的动作才算数。
//
// 核心安全不变量：任何执行路径都必须先经过一次成功解析的预览；
// 预览失败绝不回退为直接执行，设计上不存在"跳过预览"的捷径。
type Coordinator struct {
	client PreviewClient
	center *notify.Center

	mu      sync.Mutex
	state   State
	pending *pendingPreview
}

func NewCoordinator(client PreviewClient, center *notify.Center) *Coordinator {
	return &Coordinator{client: client, center: center, state: StateIdle}
}

// RequestPreview 向后端请求解析后的命令预览。失败时清空待确认状态、
// 给用户一条瞬态通知并返回错误，执行被阻断。
func (c *Coordinator) RequestPreview(ctx context.Context, tool string, params map[string]string) (*model.CommandPreview, error) {
	p, err := c.client.Preview(ctx, tool, params)
	if err != nil {
		c.mu.Lock()
		c.pending = nil
		c.state = StateIdle
		c.mu.Unlock()
		logger.Logger.Warn("命令预览失败", zap.String("tool", tool), zap.Error(err))
		if c.center != nil {
			c.center.Push("error", "预览失败", err.Error())
		}
		return nil, err
	}
	return p, nil
}

// OpenPreview 存入待确认的 (预览, 回调) 对并进入 previewing。
// 已有待确认预览时直接顶替，旧预览静默丢弃。
func (c *Coordinator) OpenPreview(p *model.CommandPreview, tool string, onConfirm ConfirmFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		logger.Logger.Debug("新预览顶替旧预览", zap.String("old", c.pending.tool), zap.String("new", tool))
	}
	c.pending = &pendingPreview{preview: p, tool: tool, onConfirm: onConfirm}
	c.state = StatePreviewing
}

// Confirm 执行待确认预览的回调。无论回调成败，协调器都回到 idle；
// 回调的错误原样返回，由发起方向用户报告。
func (c *Coordinator) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPending
	}
	p := c.pending
	c.pending = nil
	c.state = StateExecuting
	c.mu.Unlock()

	err := p.onConfirm(ctx)

	c.mu.Lock()
	// 执行期间可能已有新的 OpenPreview 进来，不要覆盖它的状态
	if c.state == StateExecuting {
		c.state = StateIdle
	}
	c.mu.Unlock()
	return err
}

// Cancel 丢弃待确认预览，不触碰后端
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	if c.state == StatePreviewing {
		c.state = StateIdle
	}
}

// Close 等同 Cancel，语义上对应界面关闭预览弹层
func (c *Coordinator) Close() {
	c.Cancel()
}

// Pending 返回当前待确认的预览（副本指针）及其工具名
func (c *Coordinator) Pending() (*model.CommandPreview, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil, "", false
	}
	return c.pending.preview, c.pending.tool, true
}

// State 当前协调器状态
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

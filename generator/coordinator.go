package generator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 面向用户的固定文案。错误细节走 zap 和审计日志，不进这些字符串。
const (
	processingText  = "Generating a fresh story..."
	fallbackText    = "The storyteller is taking a short break. Please try again in a moment."
	emptyPromptText = "The prompt file is empty. Add a prompt to get a story."
	genericErrText  = "Story generation failed. Please try again later."
)

// waiter 代表一个等待自己那轮生成完成的调用方。
// done 带缓冲：调用方提前放弃等待时，投递不会卡住工作协程。
type waiter struct {
	done chan *Result
}

// CoordinatorOptions 组装 Coordinator 的依赖，零值字段取安全默认。
type CoordinatorOptions struct {
	PromptPath  string
	Development bool
	Audit       AuditSink
	Logger      *zap.Logger
	Metrics     *Metrics
}

// Coordinator 串行化所有生成请求：同一时刻最多一次上游调用在途，
// 其余调用按 FIFO 排队，每个排队者轮到时都跑一轮全新的生成流水线，
// 拿到的是自己那轮的结果，而不是别人结果的副本。
type Coordinator struct {
	llm        LLMClient
	store      *ResultStore
	audit      AuditSink
	logger     *zap.Logger
	metrics    *Metrics
	promptPath string
	devMode    bool

	mu      sync.Mutex
	queue   []*waiter
	stopped bool
	started bool

	wake       chan struct{}
	quit       chan struct{}
	workerDone chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

func NewCoordinator(llm LLMClient, store *ResultStore, opts CoordinatorOptions) (*Coordinator, error) {
	if llm == nil {
		return nil, errors.New("coordinator: llm client is required")
	}
	if store == nil {
		return nil, errors.New("coordinator: result store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		llm:        llm,
		store:      store,
		audit:      opts.Audit,
		logger:     logger.Named("coordinator"),
		metrics:    opts.Metrics,
		promptPath: opts.PromptPath,
		devMode:    opts.Development,
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}, nil
}

// Start 启动工作协程，重复调用无效果。
func (c *Coordinator) Start() {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
		go c.run()
	})
}

// Stop 停止接收新请求并等工作协程退出。当前在途的一轮会跑完，
// 还排着队的等待者直接拿当前快照解除阻塞。
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		started := c.started
		c.mu.Unlock()

		close(c.quit)
		if started {
			<-c.workerDone
		}

		c.mu.Lock()
		pending := c.queue
		c.queue = nil
		c.mu.Unlock()

		snapshot := c.store.Get()
		for _, w := range pending {
			w.done <- snapshot
		}
		c.metrics.SetQueueDepth(0)
	})
}

// Trigger 请求一轮生成并阻塞到自己那轮完成。ctx 结束时调用方不再等待，
// 改拿当前快照返回；已排队的那一轮仍会执行并落库（排队即必然执行）。
func (c *Coordinator) Trigger(ctx context.Context) *Result {
	w := &waiter{done: make(chan *Result, 1)}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return c.store.Get()
	}
	c.queue = append(c.queue, w)
	depth := len(c.queue)
	c.mu.Unlock()
	c.metrics.SetQueueDepth(depth)

	select {
	case c.wake <- struct{}{}:
	default:
	}

	select {
	case res := <-w.done:
		return res
	case <-ctx.Done():
		return c.store.Get()
	}
}

// QueueDepth 返回当前排队中的等待者数量。
func (c *Coordinator) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Coordinator) run() {
	defer close(c.workerDone)
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		w := c.popWaiter()
		if w == nil {
			select {
			case <-c.wake:
			case <-c.quit:
				return
			}
			continue
		}
		c.runCycle(w)
	}
}

func (c *Coordinator) popWaiter() *waiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	// stopped 之后不再开新的一轮，剩余队列由 Stop 统一清算。
	if c.stopped || len(c.queue) == 0 {
		return nil
	}
	w := c.queue[0]
	c.queue = c.queue[1:]
	c.metrics.SetQueueDepth(len(c.queue))
	return w
}

// runCycle 跑一轮完整流水线。先落库、写审计，最后才释放等待者，
// 保证调用方拿到结果时存储里已经是同一份快照。
func (c *Coordinator) runCycle(w *waiter) {
	start := time.Now()
	c.metrics.CycleStarted()
	defer c.metrics.CycleFinished()

	// 处理中快照：长生成期间轮询方看到进度，而不是上一个故事。
	c.store.Set(&Result{Text: processingText, IsProcessing: true})

	res, rec := c.executeCycle(context.Background())
	c.store.Set(res)
	if c.audit != nil {
		c.audit.Record(rec)
	}
	w.done <- res

	outcome := outcomeLabel(res)
	c.metrics.ObserveCycle(outcome, time.Since(start))
	if res.Error != "" {
		c.logger.Warn("generation cycle failed",
			zap.String("audit_id", rec.ID),
			zap.String("error", rec.Error),
			zap.Duration("took", time.Since(start)))
		return
	}
	c.logger.Info("generation cycle finished",
		zap.String("audit_id", rec.ID),
		zap.String("outcome", outcome),
		zap.Duration("took", time.Since(start)))
}

// executeCycle 读提示词、增强、调模型、归一化，永远返回可用的 Result，
// 错误只体现为快照里的用户可读信息，不向上抛。
func (c *Coordinator) executeCycle(ctx context.Context) (*Result, AuditRecord) {
	rec := AuditRecord{ID: uuid.NewString(), Timestamp: time.Now()}

	base, err := ReadBasePrompt(c.promptPath)
	if err != nil {
		rec.Error = err.Error()
		return c.failureResult(err), rec
	}
	if base == "" {
		// 提示词为空：不调上游，给占位文案，不算错误。
		rec.Outcome = "skipped: prompt file empty"
		return &Result{Text: emptyPromptText}, rec
	}

	req := AugmentPrompt(base)
	rec.Prompt = req.AugmentedPrompt

	raw, err := c.llm.Complete(ctx, req.AugmentedPrompt)
	if err != nil {
		rec.Error = err.Error()
		return c.failureResult(err), rec
	}

	story, text, err := Normalize(raw)
	if err != nil {
		rec.Error = err.Error()
		return c.failureResult(err), rec
	}

	now := time.Now()
	res := &Result{LastModified: &now}
	if story != nil {
		res.Story = story
		if data, err := json.Marshal(story); err == nil {
			rec.Outcome = string(data)
		} else {
			rec.Outcome = "story: " + story.Name
		}
	} else {
		res.Text = text
		rec.Outcome = text
	}
	return res, rec
}

func (c *Coordinator) failureResult(err error) *Result {
	now := time.Now()
	return &Result{
		Text:         fallbackText,
		Error:        c.userMessage(err),
		LastModified: &now,
	}
}

// userMessage 把内部错误翻译成可以透给用户的文案。
// 凭证缺失和提示词缺失的文案是固定的，其余错误在生产环境收敛成通用提示。
func (c *Coordinator) userMessage(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	var srcErr *PromptSourceError
	if errors.As(err, &srcErr) {
		return "File not found"
	}
	if c.devMode {
		return err.Error()
	}
	return genericErrText
}

func outcomeLabel(res *Result) string {
	switch {
	case res.Error != "":
		return "error"
	case res.Story != nil:
		return "story"
	default:
		return "text"
	}
}

package work

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"git.dzz.com/wisegin/library/xgo"
	"git.dzz.com/wisegin/log"
)

const defaultPendingNum = 100 // 默认协程池大小

// LoopMonitor 协程池当前状态
type LoopMonitor struct {
	Capacity int // 池最大容量
	Running  int // 当前运行协程数
	Free     int // 空闲协程数（Capacity - Running）
}

// ITaskLoop 定义协程池接口
type ITaskLoop interface {
	// Start 启动协程池, 可安全地重复调用
	Start() error

	// Stop 停止协程池，释放所有资源
	Stop()

	// Monitor 返回协程池的当前状态
	Monitor() LoopMonitor

	// Post 异步提交任务，不等待执行结果
	Post(job func())

	// PostCtx 异步提交任务，如果 ctx 已取消，任务不会被提交
	PostCtx(ctx context.Context, job func())

	// PostAndWaitCtx 提交任务并等待其返回的 error, ctx 结束时提前返回
	PostAndWaitCtx(ctx context.Context, job func() error) error
}

type Option func(*antsLoop)

// WithSize 设置池大小
// size 必须大于 0，否则使用默认值 defaultPendingNum
func WithSize(size int) Option {
	return func(l *antsLoop) {
		if size > 0 {
			l.size = size
		} else {
			log.Warnf("Invalid size %d, using default %d", size, defaultPendingNum)
		}
	}
}

// WithFallback 自定义任务提交失败处理策略
func WithFallback(fallback func(ctx context.Context, fn func())) Option {
	return func(l *antsLoop) {
		l.fallback = fallback
	}
}

// WithPoolOptions 自定义ants池选项
func WithPoolOptions(opts ...ants.Option) Option {
	return func(l *antsLoop) {
		l.poolOptions = append(l.poolOptions, opts...)
	}
}

type antsLoop struct {
	mu          sync.RWMutex
	pool        *ants.Pool
	size        int
	fallback    func(context.Context, func())
	poolOptions []ants.Option
}

// NewAntsLoop 创建协程池实例，支持传入参数
func NewAntsLoop(opts ...Option) ITaskLoop {
	l := &antsLoop{
		size: defaultPendingNum,
		fallback: func(ctx context.Context, fn func()) {
			go safeRun(ctx, fn)
		},
		poolOptions: []ants.Option{
			ants.WithExpiryDuration(30 * time.Second), // 每30s清理一次闲置 worker
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start 启动池，初始化 ants.Pool
func (l *antsLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		log.Warnf("antsLoop already started, ignoring duplicate Start() call")
		return nil
	}

	pool, err := ants.NewPool(l.size, l.poolOptions...)
	if err != nil {
		return fmt.Errorf("pool init failed: %w", err)
	}

	l.pool = pool
	log.Debugf("antsLoop start... [size:%d]", l.size)
	return nil
}

// Stop 停止池，释放资源
func (l *antsLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		p := l.pool
		l.pool = nil
		p.Release()
		log.Debugf("antsLoop stopping [running:%d]", p.Running())
	}
}

// Monitor 返回当前池状态
func (l *antsLoop) Monitor() LoopMonitor {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.pool == nil {
		return LoopMonitor{}
	}

	capacity := l.pool.Cap()
	running := l.pool.Running()
	return LoopMonitor{
		Capacity: capacity,
		Running:  running,
		Free:     max(capacity-running, 0),
	}
}

// Post 提交无返回任务，使用 background context
func (l *antsLoop) Post(job func()) {
	l.PostCtx(context.Background(), job)
}

// PostCtx 提交无返回任务，携带上下文
func (l *antsLoop) PostCtx(ctx context.Context, job func()) {
	if ctx.Err() == nil {
		l.submit(ctx, job)
	}
}

// PostAndWaitCtx 提交任务，阻塞等待结果或 ctx 结束
func (l *antsLoop) PostAndWaitCtx(ctx context.Context, job func() error) error {
	fut := NewFuture[struct{}]()

	l.submit(ctx, func() {
		defer xgo.RecoverFromError(func(e any) {
			fut.Reject(xgo.PanicError(e))
		})
		if err := job(); err != nil {
			fut.Reject(err)
			return
		}
		fut.Resolve(struct{}{})
	})

	if _, err := fut.WaitCtx(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fmt.Errorf("canceled: %w", err)
		}
		return err
	}
	return nil
}

// submit 负责任务提交和fallback处理，保证安全调用
func (l *antsLoop) submit(ctx context.Context, fn func()) {
	l.mu.RLock()
	pool := l.pool
	l.mu.RUnlock()

	if pool == nil || pool.IsClosed() {
		l.triggerFallback(ctx, fn, "loop not started or loop is closed.")
		return
	}

	if err := pool.Submit(func() { safeRun(ctx, fn) }); err != nil {
		l.triggerFallback(ctx, fn, err.Error())
	}
}

func (l *antsLoop) triggerFallback(ctx context.Context, fn func(), reason string) {
	log.Warnf("antsLoop fallback. reason=%s", reason)
	l.fallback(ctx, fn)
}

// safeRun 包装任务执行，捕获panic且只在ctx未取消时执行
func safeRun(ctx context.Context, fn func()) {
	defer xgo.RecoverFromError(nil)
	if ctx.Err() == nil {
		fn()
	}
}

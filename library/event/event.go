package event

import (
	"sync"

	"git.dzz.com/wisegin/library/xgo"
	"git.dzz.com/wisegin/log"
)

// Handler 事件回调函数
type Handler[T any] func(val T)

// Emitter 单一事件的监听列表, Emit 在调用方 goroutine 中同步执行
type Emitter[T any] struct {
	mu       sync.RWMutex
	name     string
	handlers []Handler[T]
}

func NewEmitter[T any](name string) *Emitter[T] {
	return &Emitter[T]{name: name}
}

// On 追加监听者
func (e *Emitter[T]) On(fn Handler[T]) {
	if fn == nil {
		log.Warnf("event %q: handler is nil", e.name)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// Len 当前监听者数量
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Emit 按注册顺序调用监听者, 返回被调用的数量
// 单个监听者 panic 不影响其余监听者
func (e *Emitter[T]) Emit(val T) int {
	e.mu.RLock()
	// 复制列表避免回调中 On 造成死锁
	subs := make([]Handler[T], len(e.handlers))
	copy(subs, e.handlers)
	e.mu.RUnlock()

	for _, fn := range subs {
		xgo.SafeCall(func() { fn(val) })
	}
	return len(subs)
}

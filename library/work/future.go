package work

import (
	"context"
	"sync"
)

// Future 一次性结果, 只能被 Resolve 或 Reject 一次
// 零值不可用, 使用 NewFuture 创建
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture 创建未完成的 Future
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve 以 val 完成, 已完成时返回 false
func (f *Future[T]) Resolve(val T) bool {
	return f.settle(val, nil)
}

// Reject 以 err 完成, 已完成时返回 false
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(val T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = val, err
		settled = true
		close(f.done)
	})
	return settled
}

// Done 完成后关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait 阻塞直到完成
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// WaitCtx 阻塞直到完成或 ctx 结束; ctx 结束不会改变 Future 的结果
func (f *Future[T]) WaitCtx(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		select {
		case <-f.done:
			return f.val, f.err
		default:
			var zero T
			return zero, ctx.Err()
		}
	}
}

package xgo

import (
	"fmt"
	"runtime/debug"

	"git.dzz.com/wisegin/log"
)

// SafeCall 安全执行回调
func SafeCall(fn func()) {
	defer RecoverFromError(nil)
	if fn != nil {
		fn()
	}
}

// SafeSyncCall 异步安全执行回调
func SafeSyncCall(fn func()) {
	go func() {
		SafeCall(fn)
	}()
}

// RecoverFromError 捕获 panic 并记录堆栈, cb 非空时回传 panic 值
// 必须直接 defer 调用
func RecoverFromError(cb func(e any)) {
	if e := recover(); e != nil {
		log.Errorf("recover panic: %v\n%s", e, debug.Stack())
		if cb != nil {
			cb(e)
		}
	}
}

// PanicError 将 panic 值转换为 error
func PanicError(e any) error {
	if err, ok := e.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", e)
}

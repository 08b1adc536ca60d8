//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package gin

import (
	"net"
	"syscall"
)

// setBacklog re-issues listen(2) on a bound socket, which resizes the
// accept queue. backlog <= 0 keeps the system default.
func setBacklog(ln net.Listener, backlog int) error {
	if backlog <= 0 {
		return nil
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return nil
	}
	rc, err := tl.SyscallConn()
	if err != nil {
		return err
	}
	var lerr error
	if err := rc.Control(func(fd uintptr) {
		lerr = syscall.Listen(int(fd), backlog)
	}); err != nil {
		return err
	}
	return lerr
}

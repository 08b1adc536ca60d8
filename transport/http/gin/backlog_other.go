//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package gin

import "net"

func setBacklog(net.Listener, int) error { return nil }

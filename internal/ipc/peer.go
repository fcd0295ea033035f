//go:build linux || darwin

package ipc

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// peerUIDMatchesCurrentUser reports whether the process on the other end of
// a Unix connection runs as the same user as this one.
func peerUIDMatchesCurrentUser(conn net.Conn) (bool, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return false, fmt.Errorf("connection is not unix")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return false, err
	}
	uid, err := peerUID(raw)
	if err != nil {
		return false, err
	}
	return uid == uint32(os.Getuid()), nil
}

func controlFD(raw syscall.RawConn, fn func(fd int) error) error {
	var opErr error
	if err := raw.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}

//go:build linux

package ipc

import "syscall"

func peerUID(raw syscall.RawConn) (uint32, error) {
	var uid uint32
	err := controlFD(raw, func(fd int) error {
		cred, err := syscall.GetsockoptUcred(fd, syscall.SOL_SOCKET, syscall.SO_PEERCRED)
		if err != nil {
			return err
		}
		uid = cred.Uid
		return nil
	})
	return uid, err
}

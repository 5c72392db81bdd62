//go:build linux

package driver

import (
	"os"

	"golang.org/x/sys/unix"
)

// sysKernel — finit_module/delete_module/mknod без внешних insmod и rmmod.
type sysKernel struct{}

func (sysKernel) InitModule(path, params string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return unix.FinitModule(int(f.Fd()), params, 0)
}

func (sysKernel) DeleteModule(name string) error {
	return unix.DeleteModule(name, unix.O_NONBLOCK)
}

func (sysKernel) Mknod(path string, mode uint32, major, minor uint32) error {
	return unix.Mknod(path, unix.S_IFCHR|mode, int(unix.Mkdev(major, minor)))
}

func (sysKernel) Release() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(u.Release[:]), nil
}

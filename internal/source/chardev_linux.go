//go:build linux

package source

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Чтение через read(2) напрямую: драйвер не поддерживает poll, os.File здесь ничего не даёт.

func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
}

func readDevice(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

func closeDevice(fd int) error {
	return unix.Close(fd)
}

//go:build !linux

package source

func openDevice(path string) (int, error) {
	_ = path
	return -1, ErrUnsupported
}

func readDevice(fd int, buf []byte) (int, error) {
	_, _ = fd, buf
	return 0, ErrUnsupported
}

func closeDevice(fd int) error {
	_ = fd
	return nil
}

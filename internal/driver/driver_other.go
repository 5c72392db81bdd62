//go:build !linux

package driver

// sysKernel — заглушка на не-Linux.
type sysKernel struct{}

func (sysKernel) InitModule(path, params string) error {
	_, _ = path, params
	return ErrUnsupported
}

func (sysKernel) DeleteModule(name string) error {
	_ = name
	return ErrUnsupported
}

func (sysKernel) Mknod(path string, mode uint32, major, minor uint32) error {
	_, _, _, _ = path, mode, major, minor
	return ErrUnsupported
}

func (sysKernel) Release() (string, error) {
	return "", ErrUnsupported
}

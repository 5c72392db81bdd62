package source

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// recordSize — драйвер отдаёт за одно чтение два int: секунды и микросекунды.
const recordSize = 8

// CharDevice — источник меток времени из символьного устройства драйвера
// interrupt-timer (/dev/interrupt-timer). Каждое чтение блокируется до прерывания.
type CharDevice struct {
	path string

	mu     sync.Mutex
	fd     int
	closed bool
}

// OpenCharDevice открывает устройство только для чтения.
func OpenCharDevice(path string) (*CharDevice, error) {
	fd, err := openDevice(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &CharDevice{path: path, fd: fd}, nil
}

// Name возвращает имя источника
func (d *CharDevice) Name() string {
	return fmt.Sprintf("chardev:%s", d.path)
}

// Next читает одну запись драйвера. 0 байт означает таймаут драйвера.
func (d *CharDevice) Next() (Sample, error) {
	d.mu.Lock()
	fd, closed := d.fd, d.closed
	d.mu.Unlock()
	if closed {
		return Sample{}, ErrClosed
	}

	var buf [recordSize]byte
	n, err := readDevice(fd, buf[:])
	if err != nil {
		d.mu.Lock()
		closed = d.closed
		d.mu.Unlock()
		if closed {
			return Sample{}, ErrClosed
		}
		return Sample{}, fmt.Errorf("read %s: %w", d.path, err)
	}
	if n == 0 {
		return Sample{}, ErrTimeout
	}
	if n < recordSize {
		return Sample{}, fmt.Errorf("read %s: short record (%d bytes)", d.path, n)
	}
	return decodeRecord(buf[:]), nil
}

// Close закрывает устройство; повторный вызов безопасен.
func (d *CharDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return closeDevice(d.fd)
}

// decodeRecord разбирает запись драйвера: два int32 в порядке байт хоста.
func decodeRecord(b []byte) Sample {
	sec := int32(binary.NativeEndian.Uint32(b[0:4]))
	usec := int32(binary.NativeEndian.Uint32(b[4:8]))
	return Sample{Sec: int64(sec), Usec: int(usec)}
}

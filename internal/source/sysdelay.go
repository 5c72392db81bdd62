package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
)

// DefaultSysDelayFile — файл, в который pps-client пишет текущую системную задержку прерывания.
const DefaultSysDelayFile = "/run/shm/pps-sysDelay"

// sysDelayMax — pps-client пишет короткую строку, больше 50 байт не читаем.
const sysDelayMax = 50

// ErrDelayUnavailable — файла задержки нет: pps-client не запущен.
var ErrDelayUnavailable = errors.New("pps-client is not running")

// DelayReader — источник системной задержки (мкс), читается на каждом прерывании.
type DelayReader interface {
	ReadDelay() (int, error)
}

// SysDelayFile читает задержку из файла pps-client: "<мкс>#<комментарий>".
type SysDelayFile struct {
	Path string
}

// ReadDelay читает файл заново при каждом вызове.
func (f SysDelayFile) ReadDelay() (int, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", f.Path, ErrDelayUnavailable)
		}
		return 0, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	buf := make([]byte, sysDelayMax)
	n, err := io.ReadFull(fh, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read %s: %w", f.Path, err)
	}
	d, err := ParseSysDelay(buf[:n])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", f.Path, err)
	}
	return d, nil
}

// ParseSysDelay разбирает целое до первого '#'.
func ParseSysDelay(b []byte) (int, error) {
	if i := bytes.IndexByte(b, '#'); i >= 0 {
		b = b[:i]
	}
	s := string(bytes.TrimSpace(b))
	if s == "" {
		return 0, fmt.Errorf("sysDelay: empty value")
	}
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("sysDelay: %w", err)
	}
	return d, nil
}

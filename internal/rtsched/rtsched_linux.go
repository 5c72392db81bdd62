//go:build linux

package rtsched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetRealtime переводит процесс в SCHED_FIFO с приоритетом priority (1..99).
// Требует CAP_SYS_NICE или root.
func SetRealtime(priority int) error {
	if priority < 1 || priority > 99 {
		return fmt.Errorf("sched_fifo priority %d out of range 1..99", priority)
	}
	attr := &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, attr, 0); err != nil {
		return fmt.Errorf("sched_setattr: %w", err)
	}
	return nil
}

// LockMemory запрещает вытеснение страниц процесса, чтобы чтение прерывания не ждало подкачки.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}

// IsRoot — эффективный uid равен 0.
func IsRoot() bool {
	return unix.Geteuid() == 0
}

// GranularityNs возвращает минимальный ненулевой шаг между двумя чтениями CLOCK_REALTIME.
// Метки прерываний не точнее этой величины.
func GranularityNs() int64 {
	const rounds = 20
	var minDt int64 = 1e9
	for i := 0; i < rounds; i++ {
		var t1, t2 unix.Timespec
		_ = unix.ClockGettime(unix.CLOCK_REALTIME, &t1)
		_ = unix.ClockGettime(unix.CLOCK_REALTIME, &t2)
		dt := int64(t2.Sec-t1.Sec)*1e9 + int64(t2.Nsec-t1.Nsec)
		if dt > 0 && dt < minDt {
			minDt = dt
		}
	}
	if minDt == 1e9 {
		return 0
	}
	return minDt
}

//go:build linux

package syncdelay

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Sleep спит d через nanosleep(2); при EINTR досыпает остаток.
func Sleep(d Duration) error {
	ts := unix.NsecToTimespec(d.Std().Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&ts, &rem)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return err
		}
		ts = rem
	}
}

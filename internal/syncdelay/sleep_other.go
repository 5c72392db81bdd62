//go:build !linux

package syncdelay

import "time"

// Sleep — на не-Linux обычный time.Sleep.
func Sleep(d Duration) error {
	time.Sleep(d.Std())
	return nil
}

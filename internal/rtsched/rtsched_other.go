//go:build !linux

package rtsched

import "os"

// SetRealtime — заглушка на не-Linux (приоритет не меняется).
func SetRealtime(priority int) error {
	_ = priority
	return nil
}

// LockMemory — заглушка на не-Linux.
func LockMemory() error {
	return nil
}

// IsRoot — заглушка на не-Linux.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// GranularityNs — заглушка на не-Linux.
func GranularityNs() int64 {
	return 0
}

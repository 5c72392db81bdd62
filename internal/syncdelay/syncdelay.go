// Package syncdelay вычисляет, сколько спать до следующего ожидаемого прерывания
// периодического (1 Гц) источника, чтобы проснуться чуть раньше фронта.
package syncdelay

import "time"

const usecPerSec = 1_000_000

// DefaultLeadUsec — просыпаться за 150 мкс до ожидаемого фронта.
const DefaultLeadUsec = -150

// Duration — длительность сна в виде пары секунды + наносекунды (как timespec).
type Duration struct {
	Sec  int64
	Nsec int64
}

// Std возвращает длительность как time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Sec)*time.Second + time.Duration(d.Nsec)
}

// Next возвращает время сна до момента «через секунду после fracUsec плюс leadUsec».
// timerVal = 1e6 + leadUsec - fracUsec (мкс) сворачивается в интервал [0, 1 с]:
// >= 1e6 — 1 с и остаток; < 0 — дополнение до секунды; иначе как есть.
func Next(leadUsec, fracUsec int) Duration {
	timerVal := int64(usecPerSec + leadUsec - fracUsec)
	switch {
	case timerVal >= usecPerSec:
		return Duration{Sec: 1, Nsec: (timerVal - usecPerSec) * 1000}
	case timerVal < 0:
		return Duration{Sec: 0, Nsec: (usecPerSec + timerVal) * 1000}
	default:
		return Duration{Sec: 0, Nsec: timerVal * 1000}
	}
}

package source

import (
	"errors"
	"time"
)

const usecPerSec = 1_000_000

var (
	// ErrTimeout — источник не дождался прерывания (драйвер отдаёт 0 байт через 5 минут).
	ErrTimeout = errors.New("no interrupt: read timeout")
	// ErrClosed — источник закрыт.
	ErrClosed = errors.New("source closed")
	// ErrUnsupported — источник недоступен на этой платформе.
	ErrUnsupported = errors.New("source not supported on this platform")
)

// Sample — метка времени одного прерывания: секунды Unix и микросекунды в секунде.
type Sample struct {
	Sec  int64
	Usec int
}

// SampleFromTime переводит time.Time в Sample с точностью до микросекунды.
func SampleFromTime(t time.Time) Sample {
	return Sample{Sec: t.Unix(), Usec: t.Nanosecond() / 1000}
}

// Corrected вычитает системную задержку delayUsec и нормализует результат
// так, чтобы 0 <= Usec < 1e6.
func (s Sample) Corrected(delayUsec int) Sample {
	usec := int64(s.Usec) - int64(delayUsec)
	sec := s.Sec + usec/usecPerSec
	usec %= usecPerSec
	if usec < 0 {
		usec += usecPerSec
		sec--
	}
	return Sample{Sec: sec, Usec: int(usec)}
}

// Time возвращает метку как time.Time.
func (s Sample) Time() time.Time {
	return time.Unix(s.Sec, int64(s.Usec)*1000)
}

// TimestampSource — источник меток времени прерываний (символьное устройство драйвера, GPIO).
type TimestampSource interface {
	// Name возвращает имя источника для логов
	Name() string
	// Next блокируется до следующего прерывания и возвращает его метку.
	// При истечении таймаута возвращает ErrTimeout.
	Next() (Sample, error)
	// Close освобождает ресурсы
	Close() error
}

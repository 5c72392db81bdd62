// Package report форматирует метки прерываний для вывода в stdout.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/source"
)

// Version — строка версии, печатается первой.
const Version = "interrupt-timer v1.0.0"

// dateLayout — дата и время в локальной зоне, микросекунды дописываются отдельно.
const dateLayout = "2006-01-02 15:04:05"

// Stamp форматирует метку: локальные дата и время с микросекундами
// или секунды Unix с дробной частью.
func Stamp(s source.Sample, seconds bool) string {
	if seconds {
		return fmt.Sprintf("%d.%06d", s.Sec, s.Usec)
	}
	return fmt.Sprintf("%s.%06d", time.Unix(s.Sec, 0).Format(dateLayout), s.Usec)
}

// Repeating печатает одну строку на прерывание.
func Repeating(w io.Writer, s source.Sample, seconds bool) error {
	_, err := fmt.Fprintln(w, Stamp(s, seconds))
	return err
}

// Single печатает метку с допуском (мкс) и вероятностью, с которой событие в него попадает.
func Single(w io.Writer, s source.Sample, tolUsec int, p float64, seconds bool) error {
	_, err := fmt.Fprintf(w, "%s ±0.%06d with probability %g\n", Stamp(s, seconds), tolUsec, p)
	return err
}

// Header печатает строку версии.
func Header(w io.Writer) error {
	_, err := fmt.Fprintln(w, Version)
	return err
}

package intertimer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/histogram"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/logger"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/report"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/source"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/syncdelay"
)

// listSource отдаёт заданные метки, затем таймаут драйвера.
type listSource struct {
	samples []source.Sample
	i       int
	closed  bool
}

func (s *listSource) Name() string { return "list" }

func (s *listSource) Next() (source.Sample, error) {
	if s.i >= len(s.samples) {
		return source.Sample{}, source.ErrTimeout
	}
	smp := s.samples[s.i]
	s.i++
	return smp, nil
}

func (s *listSource) Close() error {
	s.closed = true
	return nil
}

// blockingSource блокируется в Next до Close, как драйвер без прерываний.
type blockingSource struct {
	once sync.Once
	ch   chan struct{}
}

func (s *blockingSource) Name() string { return "blocking" }

func (s *blockingSource) Next() (source.Sample, error) {
	<-s.ch
	return source.Sample{}, source.ErrClosed
}

func (s *blockingSource) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

type constDelay struct {
	d   int
	err error
}

func (c constDelay) ReadDelay() (int, error) { return c.d, c.err }

// pulses — n секундных меток с дробной частью usec.
func pulses(n int, usec int) []source.Sample {
	out := make([]source.Sample, n)
	for i := range out {
		out[i] = source.Sample{Sec: int64(1700000000 + i), Usec: usec}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	logger.Quiet = true
	t.Cleanup(func() { logger.Quiet = false })
	dir := t.TempDir()
	c := config.Default()
	c.Histogram.WorkingFile = filepath.Join(dir, "timer-distrib-forming")
	c.Histogram.StableFile = filepath.Join(dir, "timer-distrib")
	return c
}

func fixedNow() time.Time { return time.Unix(1700000000, 300_000_000) }

func TestRunRepeating(t *testing.T) {
	cfg := testConfig(t)
	src := &listSource{samples: pulses(75, 250)}
	var out bytes.Buffer
	var sleeps []syncdelay.Duration
	err := Run(context.Background(), cfg, Options{SecondsFormat: true}, Deps{
		Source: src,
		Delay:  constDelay{d: 7},
		Out:    &out,
		Sleep:  func(d syncdelay.Duration) error { sleeps = append(sleeps, d); return nil },
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 77 {
		t.Fatalf("строк %d, ожидалось 77", len(lines))
	}
	if lines[0] != report.Version {
		t.Errorf("первая строка %q", lines[0])
	}
	if lines[1] != "1700000000.000243" {
		t.Errorf("первое событие %q, ожидалось с поправкой на 7 мкс", lines[1])
	}
	if lines[76] != TimeoutMessage {
		t.Errorf("последняя строка %q", lines[76])
	}
	// Сон начинается после 11-го прерывания (seq > 10) и длится до следующего: 65 раз.
	if len(sleeps) != 65 {
		t.Errorf("снов %d, ожидалось 65", len(sleeps))
	}
	want := syncdelay.Next(243+cfg.LeadUsec(), 300_000)
	for _, d := range sleeps {
		if d != want {
			t.Fatalf("сон %+v, ожидалось %+v", d, want)
		}
	}
	if !src.closed {
		t.Error("источник не закрыт")
	}
}

func TestRunNoWait(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	slept := 0
	err := Run(context.Background(), cfg, Options{NoWait: true}, Deps{
		Source: &listSource{samples: pulses(30, 10)},
		Delay:  constDelay{},
		Out:    &out,
		Sleep:  func(syncdelay.Duration) error { slept++; return nil },
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if slept != 0 {
		t.Errorf("с -n сна быть не должно, было %d", slept)
	}
}

func TestRunDelayUnavailable(t *testing.T) {
	cfg := testConfig(t)
	err := Run(context.Background(), cfg, Options{}, Deps{
		Source: &listSource{samples: pulses(3, 10)},
		Delay:  constDelay{err: source.ErrDelayUnavailable},
		Out:    &bytes.Buffer{},
		Now:    fixedNow,
	})
	if !errors.Is(err, source.ErrDelayUnavailable) {
		t.Errorf("ожидалась ErrDelayUnavailable, получено %v", err)
	}
}

func writeStable(t *testing.T, path string, counts []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := histogram.Encode(f, counts, 0); err != nil {
		t.Fatal(err)
	}
}

func TestRunSingleEvent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Histogram.Length = 11
	writeStable(t, cfg.Histogram.StableFile, []int{0, 0, 1, 2, 5, 20, 5, 2, 1, 0, 0})
	var out bytes.Buffer
	slept := 0
	err := Run(context.Background(), cfg, Options{SingleEvent: true, SecondsFormat: true, Probability: 0.9}, Deps{
		Source: &listSource{samples: pulses(2, 500)},
		Delay:  constDelay{},
		Out:    &out,
		Sleep:  func(syncdelay.Duration) error { slept++; return nil },
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := report.Version + "\n" +
		"1700000000.000500 ±0.000003 with probability 0.9\n" +
		"1700000001.000500 ±0.000003 with probability 0.9\n" +
		TimeoutMessage + "\n"
	if out.String() != want {
		t.Errorf("вывод:\n%s\nожидалось:\n%s", out.String(), want)
	}
	if slept != 0 {
		t.Error("в режиме одиночных событий сна нет")
	}
	if _, err := os.Stat(cfg.Histogram.WorkingFile); err == nil {
		t.Error("одиночные события не накапливаются")
	}
}

func TestRunSingleEventAllTolerances(t *testing.T) {
	cfg := testConfig(t)
	cfg.Histogram.Length = 11
	writeStable(t, cfg.Histogram.StableFile, []int{0, 0, 1, 2, 5, 20, 5, 2, 1, 0, 0})
	var out bytes.Buffer
	err := Run(context.Background(), cfg, Options{SingleEvent: true, AllTolerances: true, SecondsFormat: true}, Deps{
		Source: &listSource{samples: pulses(1, 1)},
		Delay:  constDelay{},
		Out:    &out,
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out.String(), "\n")
	// версия, пять допусков, пустая строка, таймаут
	if len(lines) != 9 || lines[6] != "" || lines[7] != TimeoutMessage {
		t.Fatalf("вывод %q", out.String())
	}
	for i, p := range histogram.StandardProbabilities {
		if !strings.HasSuffix(lines[1+i], fmt.Sprintf("with probability %g", p)) {
			t.Errorf("строка %d: %q", 1+i, lines[1+i])
		}
	}
}

func TestRunSingleEventWithoutDistribution(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := Run(context.Background(), cfg, Options{SingleEvent: true, Probability: 0.95, SecondsFormat: true}, Deps{
		Source: &listSource{samples: pulses(1, 42)},
		Delay:  constDelay{},
		Out:    &out,
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "\n1700000000.000042\n") {
		t.Errorf("без распределения событие печатается без допуска: %q", out.String())
	}
}

func TestRunCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	src := &blockingSource{ch: make(chan struct{})}
	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, cfg, Options{}, Deps{Source: src, Delay: constDelay{}, Out: &bytes.Buffer{}})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ожидалась context.Canceled, получено %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены")
	}
}

func TestRunRequiresDeps(t *testing.T) {
	if err := Run(context.Background(), config.Default(), Options{}, Deps{}); err == nil {
		t.Error("ожидалась ошибка без источника")
	}
}

// Package intertimer — цикл interrupt-timer: чтение меток прерываний, поправка
// на системную задержку, вывод и накопление распределения.
package intertimer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/histogram"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/logger"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/report"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/source"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/syncdelay"
)

// TimeoutMessage печатается, когда драйвер не дождался прерывания.
const TimeoutMessage = "No interrupt: Driver timeout at 5 minutes."

// Options — режим работы из командной строки.
type Options struct {
	SecondsFormat bool    // секунды от эпохи вместо даты
	NoWait        bool    // не спать между прерываниями
	SingleEvent   bool    // одиночные события с допуском
	Probability   float64 // вероятность для допуска
	AllTolerances bool    // допуски для всех вероятностей из конфига
}

// Deps — внешние зависимости цикла; пустые Out, Sleep и Now заменяются на stdout,
// syncdelay.Sleep и time.Now.
type Deps struct {
	Source source.TimestampSource
	Delay  source.DelayReader
	Out    io.Writer
	Sleep  func(syncdelay.Duration) error
	Now    func() time.Time
}

// Run выполняет цикл до таймаута драйвера, ошибки или отмены ctx. Источник
// закрывается при выходе; отмена ctx закрывает его сразу, чтобы прервать чтение.
func Run(ctx context.Context, cfg *config.Config, opts Options, deps Deps) error {
	if deps.Source == nil || deps.Delay == nil {
		return fmt.Errorf("intertimer: source and delay reader required")
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Sleep == nil {
		deps.Sleep = syncdelay.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	defer deps.Source.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = deps.Source.Close()
		case <-done:
		}
	}()

	if err := report.Header(deps.Out); err != nil {
		return err
	}

	var tols []histogram.Estimate
	if opts.SingleEvent {
		tols = tolerances(cfg, opts)
	}
	sess := NewSession(cfg, !opts.NoWait && !opts.SingleEvent)
	logger.Info("source %s, lead %d us, single=%v, nowait=%v",
		deps.Source.Name(), cfg.LeadUsec(), opts.SingleEvent, opts.NoWait)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d, ok := sess.SleepDue(); ok {
			if err := deps.Sleep(d); err != nil {
				return fmt.Errorf("sleep: %w", err)
			}
		}

		smp, err := deps.Source.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, source.ErrTimeout) {
				_, _ = fmt.Fprintln(deps.Out, TimeoutMessage)
				return nil
			}
			return err
		}
		delay, err := deps.Delay.ReadDelay()
		if err != nil {
			return err
		}
		smp = smp.Corrected(delay)

		if !opts.SingleEvent {
			sess.Record(smp)
			if err := report.Repeating(deps.Out, smp, opts.SecondsFormat); err != nil {
				return err
			}
			if err := sess.Tick(smp, deps.Now()); err != nil {
				logger.Info("distribution not saved: %v", err)
			}
			continue
		}
		if err := printSingle(deps.Out, smp, tols, opts); err != nil {
			return err
		}
	}
}

// tolerances читает стабильный файл распределения. При ошибке события
// печатаются без допуска.
func tolerances(cfg *config.Config, opts Options) []histogram.Estimate {
	probs := []float64{histogram.ClampProbability(opts.Probability)}
	if opts.AllTolerances {
		probs = cfg.Probabilities
		if len(probs) == 0 {
			probs = histogram.StandardProbabilities
		}
	}
	est, err := histogram.EstimateAll(cfg.Histogram.StableFile, cfg.Histogram.Length, probs)
	if err != nil {
		logger.Error("tolerance unavailable: %v", err)
		return nil
	}
	for _, e := range est {
		logger.Info("tolerance %d us with probability %g", e.Tolerance, e.Probability)
	}
	return est
}

func printSingle(w io.Writer, smp source.Sample, tols []histogram.Estimate, opts Options) error {
	if len(tols) == 0 {
		return report.Repeating(w, smp, opts.SecondsFormat)
	}
	for _, e := range tols {
		if err := report.Single(w, smp, e.Tolerance, e.Probability, opts.SecondsFormat); err != nil {
			return err
		}
	}
	if len(tols) > 1 {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

// interrupt-timer — метки времени внешних прерываний GPIO с поправкой на системную задержку pps-client.
//
// Использование:
//
//	sudo interrupt-timer load-driver <gpio>   — загрузить модуль ядра для пина <gpio>
//	sudo interrupt-timer unload-driver        — выгрузить модуль
//	sudo interrupt-timer [-s] [-n]            — метки повторяющихся событий (PPS)
//	sudo interrupt-timer -p [probability]     — одиночные события с допуском
//	interrupt-timer configure-pulse           — настроить time pulse GNSS-приёмника (UBX CFG-TP5)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/driver"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/histogram"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/logger"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/rtsched"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/source"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/ubx"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/pkg/intertimer"
)

const usage = `Usage:
  sudo interrupt-timer load-driver <gpio-number>
where gpio-number is the GPIO of the pin on which
the interrupt will be captured.

After loading the driver, calling interrupt-timer
causes it to wait for interrupts then output the
date-time when each occurs.

The program will exit on ctrl-c or when no interrupts
are received within 5 minutes. When done, unload the
driver with,
  sudo interrupt-timer unload-driver

Other commands:
  interrupt-timer configure-pulse   configure the GNSS time pulse (UBX CFG-TP5)

Options:
`

type flags struct {
	seconds    bool
	noWait     bool
	prob       float64
	configPath string
	quiet      bool
	src        string
	gpioPin    string
	device     string
	port       string
	baud       int
	pulseMs    float64
	waitFix    time.Duration
}

func main() {
	var f flags
	fs := flag.NewFlagSet("interrupt-timer", flag.ExitOnError)
	fs.BoolVarP(&f.seconds, "seconds", "s", false, "выводить секунды от эпохи Unix вместо даты")
	fs.BoolVarP(&f.noWait, "no-wait", "n", false, "не спать между прерываниями (имитация одиночных событий)")
	fs.Float64VarP(&f.prob, "probability", "p", 0, "одиночные события с допуском для вероятности (<= 0.999); без значения или 0 — все допуски")
	fs.Lookup("probability").NoOptDefVal = "0"
	fs.StringVar(&f.configPath, "config", "", "путь к YAML конфигу (по умолчанию "+config.DefaultPath+")")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "меньше вывода")
	fs.StringVar(&f.src, "source", "", "источник меток: chardev | gpio (переопределяет config)")
	fs.StringVar(&f.gpioPin, "gpio-pin", "", "пин для source=gpio, например GPIO4")
	fs.StringVar(&f.device, "device", "", "символьное устройство драйвера (переопределяет config)")
	fs.StringVar(&f.port, "port", "", "последовательный порт приёмника для configure-pulse")
	fs.IntVar(&f.baud, "baud", 0, "скорость порта для configure-pulse")
	fs.Float64Var(&f.pulseMs, "pulse-width-ms", 0, "длительность импульса в мс для configure-pulse")
	fs.DurationVar(&f.waitFix, "wait-fix", 0, "configure-pulse: ждать фикса GNSS не дольше указанного времени")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	args := fs.Args()

	logger.Quiet = f.quiet
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		logger.Fatal("config: %v", err)
	}
	applyFlags(cfg, &f)

	single := fs.Changed("probability")
	if single && f.prob == 0 && len(args) > 0 {
		// "-p 0.95": pflag не берёт необязательное значение через пробел.
		if p, err := strconv.ParseFloat(args[0], 64); err == nil {
			f.prob = p
			args = args[1:]
		}
	}

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "load-driver":
		requireRoot()
		if len(args) < 2 {
			fmt.Println("GPIO number is a required second arg.")
			fmt.Println("Could not load driver.")
			os.Exit(1)
		}
		gpio, err := strconv.Atoi(args[1])
		if err != nil {
			logger.Fatal("gpio number %q: %v", args[1], err)
		}
		if err := driver.New(cfg.Driver).Load(gpio); err != nil {
			logger.Error("%v", err)
			fmt.Println("Could not load interrupt-timer driver. Exiting.")
			os.Exit(1)
		}
		fmt.Println("interrupt-timer: driver loaded")
	case "unload-driver":
		requireRoot()
		fmt.Println("interrupt-timer: driver unloading")
		if err := driver.New(cfg.Driver).Unload(); err != nil {
			logger.Fatal("%v", err)
		}
	case "configure-pulse":
		runConfigurePulse(cfg, f.waitFix)
	case "":
		opts := intertimer.Options{
			SecondsFormat: f.seconds || cfg.Output.Seconds,
			NoWait:        f.noWait,
			SingleEvent:   single,
			Probability:   histogram.ClampProbability(f.prob),
			AllTolerances: single && f.prob <= 0,
		}
		runTimer(cfg, opts)
	default:
		fs.Usage()
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyFlags(cfg *config.Config, f *flags) {
	if f.src != "" {
		cfg.Device.Source = f.src
	}
	if f.gpioPin != "" {
		cfg.Device.GPIOPin = f.gpioPin
	}
	if f.device != "" {
		cfg.Device.Path = f.device
		cfg.Driver.DeviceNode = f.device
	}
	if f.port != "" {
		cfg.Pulse.Port = f.port
	}
	if f.baud != 0 {
		cfg.Pulse.Baud = f.baud
	}
	if f.pulseMs > 0 {
		cfg.Pulse.PulseWidthMs = f.pulseMs
	}
}

func requireRoot() {
	if !rtsched.IsRoot() {
		fmt.Println("Requires superuser privileges. Please sudo this command.")
		os.Exit(1)
	}
}

// runTimer поднимает приоритет, открывает источник и крутит цикл до таймаута или сигнала.
// Первый SIGINT/SIGTERM отменяет контекст, второй завершает процесс сразу.
func runTimer(cfg *config.Config, opts intertimer.Options) {
	if cfg.Realtime() {
		requireRoot()
		if err := rtsched.SetRealtime(cfg.Scheduler.Priority); err != nil {
			logger.Error("%v", err)
		}
		if cfg.Scheduler.LockMemory {
			if err := rtsched.LockMemory(); err != nil {
				logger.Error("%v", err)
			}
		}
	}
	if g := rtsched.GranularityNs(); g > 0 {
		logger.Info("clock granularity %d ns", g)
	}

	src, err := source.NewFromConfig(cfg)
	if err != nil {
		logger.Error("%v", err)
		if cfg.Device.Source == "chardev" {
			fmt.Println("interrupt-timer: Driver is not loaded. Exiting.")
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("получен сигнал %v, завершение...", sig)
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	err = intertimer.Run(ctx, cfg, opts, intertimer.Deps{
		Source: src,
		Delay:  source.NewDelayReader(cfg),
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, source.ErrDelayUnavailable):
		fmt.Println("Error: pps-client is not running.")
		os.Exit(1)
	default:
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func runConfigurePulse(cfg *config.Config, waitFix time.Duration) {
	port, err := ubx.Open(cfg.Pulse.Port, cfg.Pulse.Baud)
	if err != nil {
		logger.Fatal("открытие порта %s: %v", cfg.Pulse.Port, err)
	}
	defer port.Close()
	timeout := cfg.PulseAckTimeout()

	if cur, err := port.ReadTP5(cfg.Pulse.TPIdx, timeout); err != nil {
		logger.Info("текущая настройка time pulse не прочитана: %v", err)
	} else {
		logger.Info("текущий time pulse: %v", cur)
	}

	if waitFix > 0 {
		deadline := time.Now().Add(waitFix)
		for {
			fix, err := port.TimeFix(timeout)
			if err == nil && fix.Locked {
				logger.Info("GNSS fix, UTC %s", fix.UTC.Format(time.RFC3339))
				break
			}
			if time.Now().After(deadline) {
				logger.Error("нет фикса GNSS за %v, time pulse не выровнен по UTC", waitFix)
				break
			}
			time.Sleep(time.Second)
		}
	}

	tp := ubx.TP5FromConfig(cfg.Pulse)
	if err := port.Configure(tp, timeout); err != nil {
		logger.Fatal("настройка time pulse: %v", err)
	}
	if !logger.Quiet {
		fmt.Printf("Time pulse настроен: %s, %d baud, импульс %.2f мс\n",
			cfg.Pulse.Port, cfg.Pulse.Baud, cfg.Pulse.PulseWidthMs)
	}
}

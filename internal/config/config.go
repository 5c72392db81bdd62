package config

import (
	"fmt"
	"os"
	"time"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/histogram"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/syncdelay"
	"gopkg.in/yaml.v3"
)

// DefaultPath — конфиг, который читается, если он есть в текущем каталоге.
const DefaultPath = "interrupt-timer.yml"

// Config — конфигурация interrupt-timer. Все поля необязательны: пустые значения
// заполняются из Default().
type Config struct {
	Device        DeviceConfig    `yaml:"device"`
	SysDelayFile  string          `yaml:"sys_delay_file"` // пишется pps-client: "<мкс>#..."
	Histogram     HistogramConfig `yaml:"histogram"`
	Sync          SyncConfig      `yaml:"sync"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Driver        DriverConfig    `yaml:"driver"`
	Pulse         PulseConfig     `yaml:"pulse"`
	Output        OutputConfig    `yaml:"output"`
	Probabilities []float64       `yaml:"probabilities"`
}

// DeviceConfig — откуда берутся метки времени прерываний.
type DeviceConfig struct {
	Source      string `yaml:"source"`       // chardev | gpio | auto
	Path        string `yaml:"path"`         // символьное устройство драйвера
	GPIOPin     string `yaml:"gpio_pin"`     // имя пина для source: gpio, например GPIO4
	ReadTimeout string `yaml:"read_timeout"` // для gpio; у chardev таймаут задаёт драйвер
}

// HistogramConfig — параметры гистограммы и файлов.
type HistogramConfig struct {
	Length      int    `yaml:"length"`
	Warmup      int    `yaml:"warmup"`
	WorkingFile string `yaml:"working_file"`
	StableFile  string `yaml:"stable_file"`
	EpochDays   int    `yaml:"epoch_days"`
}

// SyncConfig — сон между прерываниями.
type SyncConfig struct {
	LeadUsec *int `yaml:"lead_usec"` // указатель: 0 — допустимое значение
	Start    int  `yaml:"start"`     // число прерываний до включения сна
}

// SchedulerConfig — SCHED_FIFO и mlockall.
type SchedulerConfig struct {
	Realtime   *bool `yaml:"realtime"`
	Priority   int   `yaml:"priority"`
	LockMemory bool  `yaml:"lock_memory"`
}

// DriverConfig — модуль ядра interrupt-timer.
type DriverConfig struct {
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"` // пусто = /lib/modules/<release>/kernel/drivers/misc/<name>.ko
	DeviceNode string `yaml:"device_node"`
	Mode       uint32 `yaml:"mode"`
}

// PulseConfig — time pulse GNSS-приёмника (UBX CFG-TP5), подаваемый на вход прерывания.
type PulseConfig struct {
	Port            string  `yaml:"port"`
	Baud            int     `yaml:"baud"`
	TPIdx           uint8   `yaml:"tp_idx"`
	PeriodUs        uint32  `yaml:"period_us"`
	PulseWidthMs    float64 `yaml:"pulse_width_ms"`
	AntCableDelayNs int16   `yaml:"ant_cable_delay_ns"`
	AlignToTow      bool    `yaml:"align_to_tow"`
	AckTimeout      string  `yaml:"ack_timeout"`
}

// OutputConfig — формат вывода меток времени.
type OutputConfig struct {
	Seconds bool `yaml:"seconds"` // секунды от эпохи Unix вместо даты
}

// Default возвращает конфиг по умолчанию.
func Default() *Config {
	lead := syncdelay.DefaultLeadUsec
	rt := true
	return &Config{
		Device: DeviceConfig{
			Source:      "chardev",
			Path:        "/dev/interrupt-timer",
			GPIOPin:     "GPIO4",
			ReadTimeout: "5m",
		},
		SysDelayFile: "/run/shm/pps-sysDelay",
		Histogram: HistogramConfig{
			Length:      histogram.DefaultLength,
			Warmup:      histogram.DefaultWarmup,
			WorkingFile: histogram.DefaultWorkingFile,
			StableFile:  histogram.DefaultStableFile,
			EpochDays:   1,
		},
		Sync: SyncConfig{
			LeadUsec: &lead,
			Start:    10,
		},
		Scheduler: SchedulerConfig{
			Realtime: &rt,
			Priority: 99,
		},
		Driver: DriverConfig{
			Name:       "interrupt-timer",
			DeviceNode: "/dev/interrupt-timer",
			Mode:       0o664,
		},
		Pulse: PulseConfig{
			Port:         "/dev/ttyS0",
			Baud:         9600,
			PeriodUs:     1_000_000,
			PulseWidthMs: 5,
			AlignToTow:   true,
			AckTimeout:   "2s",
		},
		Probabilities: append([]float64(nil), histogram.StandardProbabilities...),
	}
}

// Load читает конфиг из YAML
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

// LeadUsec возвращает опережение пробуждения, мкс.
func (c *Config) LeadUsec() int {
	if c.Sync.LeadUsec == nil {
		return syncdelay.DefaultLeadUsec
	}
	return *c.Sync.LeadUsec
}

// Realtime сообщает, нужно ли переключаться в SCHED_FIFO.
func (c *Config) Realtime() bool {
	return c.Scheduler.Realtime == nil || *c.Scheduler.Realtime
}

// GPIOReadTimeout — таймаут ожидания фронта для source: gpio.
func (c *Config) GPIOReadTimeout() time.Duration {
	return parseDuration(c.Device.ReadTimeout, 5*time.Minute)
}

// PulseAckTimeout — сколько ждать подтверждения CFG-TP5.
func (c *Config) PulseAckTimeout() time.Duration {
	return parseDuration(c.Pulse.AckTimeout, 2*time.Second)
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate отвергает то, что нельзя заменить значением по умолчанию.
func validate(c *Config) error {
	for i, p := range c.Probabilities {
		if !(p > 0 && p < 1) {
			return fmt.Errorf("probabilities[%d]: %v not in (0, %v]", i, p, histogram.MaxProbability)
		}
	}
	return nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Device.Source == "" {
		c.Device.Source = d.Device.Source
	}
	if c.Device.Path == "" {
		c.Device.Path = d.Device.Path
	}
	if c.Device.GPIOPin == "" {
		c.Device.GPIOPin = d.Device.GPIOPin
	}
	if c.Device.ReadTimeout == "" {
		c.Device.ReadTimeout = d.Device.ReadTimeout
	}
	if c.SysDelayFile == "" {
		c.SysDelayFile = d.SysDelayFile
	}
	if c.Histogram.Length <= 0 {
		c.Histogram.Length = d.Histogram.Length
	}
	if c.Histogram.Warmup <= 0 {
		c.Histogram.Warmup = d.Histogram.Warmup
	}
	if c.Histogram.WorkingFile == "" {
		c.Histogram.WorkingFile = d.Histogram.WorkingFile
	}
	if c.Histogram.StableFile == "" {
		c.Histogram.StableFile = d.Histogram.StableFile
	}
	if c.Histogram.EpochDays <= 0 {
		c.Histogram.EpochDays = d.Histogram.EpochDays
	}
	if c.Sync.LeadUsec == nil {
		c.Sync.LeadUsec = d.Sync.LeadUsec
	}
	if c.Sync.Start <= 0 {
		c.Sync.Start = d.Sync.Start
	}
	if c.Scheduler.Realtime == nil {
		c.Scheduler.Realtime = d.Scheduler.Realtime
	}
	if c.Scheduler.Priority <= 0 {
		c.Scheduler.Priority = d.Scheduler.Priority
	}
	if c.Driver.Name == "" {
		c.Driver.Name = d.Driver.Name
	}
	if c.Driver.DeviceNode == "" {
		c.Driver.DeviceNode = c.Device.Path
	}
	if c.Driver.Mode == 0 {
		c.Driver.Mode = d.Driver.Mode
	}
	if c.Pulse.Port == "" {
		c.Pulse.Port = d.Pulse.Port
	}
	if c.Pulse.Baud == 0 {
		c.Pulse.Baud = d.Pulse.Baud
	}
	if c.Pulse.PeriodUs == 0 {
		c.Pulse.PeriodUs = d.Pulse.PeriodUs
	}
	if c.Pulse.PulseWidthMs == 0 {
		c.Pulse.PulseWidthMs = d.Pulse.PulseWidthMs
	}
	if c.Pulse.AckTimeout == "" {
		c.Pulse.AckTimeout = d.Pulse.AckTimeout
	}
	if len(c.Probabilities) == 0 {
		c.Probabilities = d.Probabilities
	}
	for i, p := range c.Probabilities {
		c.Probabilities[i] = histogram.ClampProbability(p)
	}
}

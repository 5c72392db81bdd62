package source

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO — источник без модуля ядра: ждёт передний фронт на пине через periph
// и берёт метку с системных часов в момент пробуждения. Метка грубее, чем у
// драйвера (задержка планировщика входит в неё), поэтому системная задержка
// pps-client остаётся единственной поправкой.
type GPIO struct {
	pin     gpio.PinIn
	timeout time.Duration
	now     func() time.Time
}

// NewGPIO инициализирует драйверы periph и настраивает пин pinName (например "GPIO4")
// на передний фронт с подтяжкой к земле.
func NewGPIO(pinName string, timeout time.Duration) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("gpio %s: pin not found", pinName)
	}
	return newGPIO(p, timeout, time.Now)
}

func newGPIO(p gpio.PinIn, timeout time.Duration, now func() time.Time) (*GPIO, error) {
	if err := p.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("gpio %s: %w", p, err)
	}
	if timeout <= 0 {
		timeout = -1
	}
	return &GPIO{pin: p, timeout: timeout, now: now}, nil
}

// Name возвращает имя источника
func (g *GPIO) Name() string {
	return fmt.Sprintf("gpio:%s", g.pin.Name())
}

// Next ждёт фронт не дольше таймаута.
func (g *GPIO) Next() (Sample, error) {
	if !g.pin.WaitForEdge(g.timeout) {
		return Sample{}, ErrTimeout
	}
	return SampleFromTime(g.now()), nil
}

// Close останавливает пин.
func (g *GPIO) Close() error {
	return g.pin.Halt()
}

package source

import (
	"fmt"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/logger"
)

// NewFromConfig создаёт TimestampSource по секции device конфига.
func NewFromConfig(c *config.Config) (TimestampSource, error) {
	switch c.Device.Source {
	case "chardev", "":
		dev, err := OpenCharDevice(c.Device.Path)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case "gpio":
		if c.Device.GPIOPin == "" {
			return nil, fmt.Errorf("gpio: gpio_pin required")
		}
		g, err := NewGPIO(c.Device.GPIOPin, c.GPIOReadTimeout())
		if err != nil {
			return nil, err
		}
		return g, nil
	case "auto":
		return openFirst(c)
	default:
		return nil, fmt.Errorf("unknown source: %s", c.Device.Source)
	}
}

// NewDelayReader возвращает чтение системной задержки из файла pps-client.
func NewDelayReader(c *config.Config) DelayReader {
	path := c.SysDelayFile
	if path == "" {
		path = DefaultSysDelayFile
	}
	return SysDelayFile{Path: path}
}

// openFirst — сначала драйвер, при его отсутствии GPIO через periph.
func openFirst(c *config.Config) (TimestampSource, error) {
	dev, err := OpenCharDevice(c.Device.Path)
	if err == nil {
		return dev, nil
	}
	logger.Info("%v, falling back to gpio %s", err, c.Device.GPIOPin)
	g, gerr := NewGPIO(c.Device.GPIOPin, c.GPIOReadTimeout())
	if gerr != nil {
		return nil, fmt.Errorf("no source available: %v; %w", err, gerr)
	}
	return g, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interrupt-timer.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(writeConfig(t, "output:\n  seconds: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	d := Default()
	if !c.Output.Seconds {
		t.Error("output.seconds не прочитан")
	}
	if c.Device.Path != d.Device.Path || c.Device.Source != "chardev" {
		t.Errorf("device: %+v", c.Device)
	}
	if c.Histogram.Length != 61 || c.Histogram.Warmup != 60 || c.Histogram.EpochDays != 1 {
		t.Errorf("histogram: %+v", c.Histogram)
	}
	if c.LeadUsec() != -150 || c.Sync.Start != 10 {
		t.Errorf("sync: lead=%d start=%d", c.LeadUsec(), c.Sync.Start)
	}
	if !c.Realtime() || c.Scheduler.Priority != 99 {
		t.Errorf("scheduler: %+v", c.Scheduler)
	}
	if c.Driver.DeviceNode != "/dev/interrupt-timer" || c.Driver.Mode != 0o664 {
		t.Errorf("driver: %+v", c.Driver)
	}
	if len(c.Probabilities) != 5 {
		t.Errorf("probabilities: %v", c.Probabilities)
	}
	if c.GPIOReadTimeout() != 5*time.Minute || c.PulseAckTimeout() != 2*time.Second {
		t.Errorf("timeouts: %v %v", c.GPIOReadTimeout(), c.PulseAckTimeout())
	}
}

func TestLoad_Overrides(t *testing.T) {
	body := `
device:
  source: gpio
  gpio_pin: GPIO17
  read_timeout: 30s
sys_delay_file: /tmp/sysdelay
histogram:
  length: 31
  working_file: /tmp/forming
  stable_file: /tmp/stable
  epoch_days: 7
sync:
  lead_usec: 0
scheduler:
  realtime: false
probabilities: [0.5, 0.9999]
`
	c, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if c.Device.Source != "gpio" || c.Device.GPIOPin != "GPIO17" || c.GPIOReadTimeout() != 30*time.Second {
		t.Errorf("device: %+v", c.Device)
	}
	if c.Histogram.Length != 31 || c.Histogram.Warmup != 60 || c.Histogram.EpochDays != 7 {
		t.Errorf("histogram: %+v", c.Histogram)
	}
	if c.LeadUsec() != 0 {
		t.Errorf("lead_usec: 0 должен сохраниться, got %d", c.LeadUsec())
	}
	if c.Realtime() {
		t.Error("realtime: false должен отключить SCHED_FIFO")
	}
	if c.Probabilities[0] != 0.5 || c.Probabilities[1] != 0.999 {
		t.Errorf("probabilities: %v", c.Probabilities)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("ожидали ошибку для отсутствующего файла")
	}
	if _, err := Load(writeConfig(t, "device: [\n")); err == nil {
		t.Error("ожидали ошибку разбора")
	}
	for _, body := range []string{
		"probabilities: [0.9, 0]\n",
		"probabilities: [-0.5]\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("ожидали ошибку для %q", body)
		}
	}
}

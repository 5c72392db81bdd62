package ubx

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// readPoll — таймаут одного read(2) на порту; общий дедлайн считается поверх него.
const readPoll = 100 * time.Millisecond

var (
	// ErrNak — приёмник отверг конфигурацию (ACK-NAK).
	ErrNak = errors.New("ubx: receiver rejected message (ACK-NAK)")
	// ErrNoResponse — ответ не пришёл до дедлайна.
	ErrNoResponse = errors.New("ubx: no response")
)

// Port — последовательный порт приёмника с UBX-запросами поверх него.
type Port struct {
	rw  io.ReadWriteCloser
	now func() time.Time
}

// Open открывает последовательный порт
func Open(device string, baud int) (*Port, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readPoll,
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	return NewPort(p), nil
}

// NewPort оборачивает уже открытый поток.
func NewPort(rw io.ReadWriteCloser) *Port {
	return &Port{rw: rw, now: time.Now}
}

// Configure отправляет CFG-TP5 и ждёт ACK для него.
func (p *Port) Configure(c TP5Config, timeout time.Duration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	ack, err := p.request(BuildCFGTP5(c), timeout, func(f Frame) bool {
		return f.Class == ClassACK && len(f.Payload) >= 2 &&
			f.Payload[0] == ClassCFG && f.Payload[1] == IDTP5
	})
	if err != nil {
		return fmt.Errorf("cfg-tp5: %w", err)
	}
	if ack.ID != IDACKACK {
		return ErrNak
	}
	return nil
}

// ReadTP5 опрашивает текущую настройку time pulse.
func (p *Port) ReadTP5(tpIdx uint8, timeout time.Duration) (TP5Config, error) {
	f, err := p.request(PollTP5(tpIdx), timeout, func(f Frame) bool {
		return f.Is(ClassCFG, IDTP5) && len(f.Payload) >= TP5PayloadSize && f.Payload[0] == tpIdx
	})
	if err != nil {
		return TP5Config{}, fmt.Errorf("poll cfg-tp5: %w", err)
	}
	return ParseTP5(f.Payload)
}

// TimeFix опрашивает NAV-PVT и возвращает время приёмника.
func (p *Port) TimeFix(timeout time.Duration) (TimeFix, error) {
	deadline := p.now().Add(timeout)
	if err := p.write(PollNAVPVT()); err != nil {
		return TimeFix{}, err
	}
	f, err := p.readUntil(deadline, func(f Frame) bool { return f.Is(ClassNAV, IDNAVPVT) })
	if err != nil {
		return TimeFix{}, fmt.Errorf("poll nav-pvt: %w", err)
	}
	// Невалидное время — не ошибка: приёмник отвечает, но ещё не знает UTC.
	fix, _ := ParseNAVPVT(f.Payload)
	return fix, nil
}

// Close закрывает порт
func (p *Port) Close() error {
	if p.rw == nil {
		return nil
	}
	return p.rw.Close()
}

func (p *Port) write(packet []byte) error {
	if _, err := p.rw.Write(packet); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (p *Port) request(packet []byte, timeout time.Duration, match func(Frame) bool) (Frame, error) {
	deadline := p.now().Add(timeout)
	if err := p.write(packet); err != nil {
		return Frame{}, err
	}
	return p.readUntil(deadline, match)
}

// readUntil читает кадры до подходящего; чужие кадры и кадры с плохой суммой пропускаются.
func (p *Port) readUntil(deadline time.Time, match func(Frame) bool) (Frame, error) {
	r := &deadlineReader{r: p.rw, deadline: deadline, now: p.now}
	for {
		f, err := ReadFrame(r)
		if errors.Is(err, ErrChecksum) || errors.Is(err, ErrFrameTooLong) {
			continue
		}
		if err != nil {
			return Frame{}, err
		}
		if match(f) {
			return f, nil
		}
	}
}

// deadlineReader превращает пустые чтения порта (таймаут VTIME) в ErrNoResponse после дедлайна.
type deadlineReader struct {
	r        io.Reader
	deadline time.Time
	now      func() time.Time
}

func (d *deadlineReader) Read(b []byte) (int, error) {
	for {
		n, err := d.r.Read(b)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
			return n, err
		}
		if !d.now().Before(d.deadline) {
			return 0, ErrNoResponse
		}
		if err != nil {
			// EOF без данных: поток ещё может дописаться, ждём как при таймауте порта.
			time.Sleep(readPoll / 10)
		}
	}
}

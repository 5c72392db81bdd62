package ubx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
)

// CFG-TP5 payload layout (32 bytes)
// 0:  tpIdx, 1: version, 2-3: reserved
// 4:  antCableDelay int16 (нс), 6: rfGroupDelay int16 (нс)
// 8:  freqPeriod, 12: freqPeriodLock (мкс при isFreq=0)
// 16: pulseLenRatio, 20: pulseLenRatioLock (мкс при isLength=1)
// 24: userConfigDelay int32 (нс)
// 28: flags

// TP5PayloadSize — размер payload CFG-TP5.
const TP5PayloadSize = 32

// TP5Flags — биты флагов CFG-TP5
const (
	TP5Active         = 0x01
	TP5LockGnssFreq   = 0x02
	TP5LockedOtherSet = 0x04
	TP5IsFreq         = 0x08
	TP5IsLength       = 0x10
	TP5AlignToTow     = 0x20
	TP5Polarity       = 0x40 // передний фронт в начале секунды
)

// TP5Config — параметры time pulse: период и длительность в микросекундах.
type TP5Config struct {
	TPIdx             uint8
	AntCableDelayNs   int16
	RfGroupDelayNs    int16
	PeriodUs          uint32
	PeriodLockUs      uint32
	PulseLenUs        uint32
	PulseLenLockUs    uint32
	UserConfigDelayNs int32
	Flags             uint32
}

// TP5FromConfig строит CFG-TP5 из секции pulse: импульс по переднему фронту,
// одинаковый до и после захвата GNSS.
func TP5FromConfig(c config.PulseConfig) TP5Config {
	period := c.PeriodUs
	if period == 0 {
		period = 1_000_000
	}
	width := uint32(math.Round(c.PulseWidthMs * 1000))
	flags := uint32(TP5Active | TP5LockGnssFreq | TP5LockedOtherSet | TP5IsLength | TP5Polarity)
	if c.AlignToTow {
		flags |= TP5AlignToTow
	}
	return TP5Config{
		TPIdx:           c.TPIdx,
		AntCableDelayNs: c.AntCableDelayNs,
		PeriodUs:        period,
		PeriodLockUs:    period,
		PulseLenUs:      width,
		PulseLenLockUs:  width,
		Flags:           flags,
	}
}

// Validate проверяет, что импульс короче периода.
func (c TP5Config) Validate() error {
	if c.PeriodUs == 0 {
		return fmt.Errorf("tp5: zero period")
	}
	if c.PulseLenUs >= c.PeriodUs || c.PulseLenLockUs >= c.PeriodLockUs {
		return fmt.Errorf("tp5: pulse length %d us not shorter than period %d us", c.PulseLenUs, c.PeriodUs)
	}
	return nil
}

// Marshal сериализует TP5Config в 32-байтный payload
func (c TP5Config) Marshal() []byte {
	p := make([]byte, TP5PayloadSize)
	p[0] = c.TPIdx
	p[1] = 0 // version
	binary.LittleEndian.PutUint16(p[4:6], uint16(c.AntCableDelayNs))
	binary.LittleEndian.PutUint16(p[6:8], uint16(c.RfGroupDelayNs))
	binary.LittleEndian.PutUint32(p[8:12], c.PeriodUs)
	binary.LittleEndian.PutUint32(p[12:16], c.PeriodLockUs)
	binary.LittleEndian.PutUint32(p[16:20], c.PulseLenUs)
	binary.LittleEndian.PutUint32(p[20:24], c.PulseLenLockUs)
	binary.LittleEndian.PutUint32(p[24:28], uint32(c.UserConfigDelayNs))
	binary.LittleEndian.PutUint32(p[28:32], c.Flags)
	return p
}

// ParseTP5 разбирает ответ приёмника на опрос CFG-TP5.
func ParseTP5(payload []byte) (TP5Config, error) {
	if len(payload) < TP5PayloadSize {
		return TP5Config{}, fmt.Errorf("tp5: short payload (%d bytes)", len(payload))
	}
	return TP5Config{
		TPIdx:             payload[0],
		AntCableDelayNs:   int16(binary.LittleEndian.Uint16(payload[4:6])),
		RfGroupDelayNs:    int16(binary.LittleEndian.Uint16(payload[6:8])),
		PeriodUs:          binary.LittleEndian.Uint32(payload[8:12]),
		PeriodLockUs:      binary.LittleEndian.Uint32(payload[12:16]),
		PulseLenUs:        binary.LittleEndian.Uint32(payload[16:20]),
		PulseLenLockUs:    binary.LittleEndian.Uint32(payload[20:24]),
		UserConfigDelayNs: int32(binary.LittleEndian.Uint32(payload[24:28])),
		Flags:             binary.LittleEndian.Uint32(payload[28:32]),
	}, nil
}

// String — краткое описание для лога.
func (c TP5Config) String() string {
	return fmt.Sprintf("tp%d period=%dus pulse=%dus cable=%dns flags=%#x",
		c.TPIdx, c.PeriodUs, c.PulseLenUs, c.AntCableDelayNs, c.Flags)
}

// BuildCFGTP5 собирает полный UBX CFG-TP5 пакет
func BuildCFGTP5(c TP5Config) []byte {
	return Frame{Class: ClassCFG, ID: IDTP5, Payload: c.Marshal()}.Encode()
}

// PollTP5 — запрос текущей настройки time pulse tpIdx.
func PollTP5(tpIdx uint8) []byte {
	return Frame{Class: ClassCFG, ID: IDTP5, Payload: []byte{tpIdx}}.Encode()
}

package ubx

import (
	"encoding/binary"
	"time"
)

// NAVPVTSize — минимальный размер payload NAV-PVT
const NAVPVTSize = 92

// Смещения полей времени в payload NAV-PVT
const (
	navPvtYear  = 4  // uint16
	navPvtMonth = 6  // uint8
	navPvtDay   = 7  // uint8
	navPvtHour  = 8  // uint8
	navPvtMin   = 9  // uint8
	navPvtSec   = 10 // uint8
	navPvtValid = 11 // uint8
	navPvtNano  = 16 // int32
	navPvtFlags = 21 // uint8: bit0 gnssFixOK
)

// Valid flags NAV-PVT
const (
	NavPVTValidDate          = 1 << 0
	NavPVTValidTime          = 1 << 1
	NavPVTValidFullyResolved = 1 << 2
	NavPVTGnssFixOK          = 1 << 0
)

// TimeFix — время приёмника из NAV-PVT. Пока Locked=false, time pulse
// идёт от собственного генератора приёмника и не выровнен по UTC.
type TimeFix struct {
	UTC    time.Time
	Locked bool
}

// ParseNAVPVT разбирает UTC и признак фикса из payload UBX-NAV-PVT.
// ok=false, если payload короткий или время не валидно.
func ParseNAVPVT(payload []byte) (fix TimeFix, ok bool) {
	if len(payload) < NAVPVTSize {
		return TimeFix{}, false
	}
	valid := payload[navPvtValid]
	if valid&NavPVTValidTime == 0 || valid&NavPVTValidDate == 0 {
		return TimeFix{}, false
	}
	nano := int(int32(binary.LittleEndian.Uint32(payload[navPvtNano : navPvtNano+4])))
	if nano < 0 {
		nano = 0
	} else if nano > 999999999 {
		nano = 999999999
	}
	fix.UTC = time.Date(
		int(binary.LittleEndian.Uint16(payload[navPvtYear:])),
		time.Month(payload[navPvtMonth]),
		int(payload[navPvtDay]),
		int(payload[navPvtHour]),
		int(payload[navPvtMin]),
		int(payload[navPvtSec]),
		nano, time.UTC)
	fix.Locked = valid&NavPVTValidFullyResolved != 0 && payload[navPvtFlags]&NavPVTGnssFixOK != 0
	return fix, true
}

// PollNAVPVT — запрос одного NAV-PVT.
func PollNAVPVT() []byte {
	return Frame{Class: ClassNAV, ID: IDNAVPVT}.Encode()
}

package ubx

import (
	"encoding/binary"
	"testing"
	"time"
)

func makeNAVPVT(valid, flags byte, year, month, day, hour, min, sec int, nano int32) []byte {
	p := make([]byte, NAVPVTSize)
	binary.LittleEndian.PutUint16(p[navPvtYear:], uint16(year))
	p[navPvtMonth] = byte(month)
	p[navPvtDay] = byte(day)
	p[navPvtHour] = byte(hour)
	p[navPvtMin] = byte(min)
	p[navPvtSec] = byte(sec)
	p[navPvtValid] = valid
	p[navPvtFlags] = flags
	binary.LittleEndian.PutUint32(p[navPvtNano:], uint32(nano))
	return p
}

func TestParseNAVPVT(t *testing.T) {
	const allValid = NavPVTValidDate | NavPVTValidTime | NavPVTValidFullyResolved

	t.Run("locked", func(t *testing.T) {
		p := makeNAVPVT(allValid, NavPVTGnssFixOK, 2025, 1, 15, 12, 30, 45, 123456789)
		fix, ok := ParseNAVPVT(p)
		if !ok {
			t.Fatal("expected ok")
		}
		want := time.Date(2025, 1, 15, 12, 30, 45, 123456789, time.UTC)
		if !fix.UTC.Equal(want) {
			t.Errorf("got %v want %v", fix.UTC, want)
		}
		if !fix.Locked {
			t.Error("expected Locked")
		}
	})

	t.Run("time without fix", func(t *testing.T) {
		p := makeNAVPVT(NavPVTValidDate|NavPVTValidTime, 0, 2025, 1, 15, 12, 30, 45, 0)
		fix, ok := ParseNAVPVT(p)
		if !ok || fix.Locked {
			t.Errorf("ok=%v locked=%v, want ok and not locked", ok, fix.Locked)
		}
	})

	t.Run("no validTime flag", func(t *testing.T) {
		p := makeNAVPVT(NavPVTValidDate, NavPVTGnssFixOK, 2025, 1, 15, 12, 30, 45, 0)
		if _, ok := ParseNAVPVT(p); ok {
			t.Error("expected !ok when validTime not set")
		}
	})

	t.Run("short payload", func(t *testing.T) {
		if _, ok := ParseNAVPVT(make([]byte, 50)); ok {
			t.Error("expected !ok for short payload")
		}
	})

	t.Run("nano clamp", func(t *testing.T) {
		p := makeNAVPVT(allValid, 0, 2025, 1, 1, 0, 0, 0, -1)
		fix, _ := ParseNAVPVT(p)
		if fix.UTC.Nanosecond() != 0 {
			t.Errorf("nano should be clamped to 0, got %d", fix.UTC.Nanosecond())
		}
		p = makeNAVPVT(allValid, 0, 2025, 1, 1, 0, 0, 0, 2000000000)
		fix, _ = ParseNAVPVT(p)
		if fix.UTC.Nanosecond() != 999999999 {
			t.Errorf("nano should be clamped to 999999999, got %d", fix.UTC.Nanosecond())
		}
	})
}

func TestPollNAVPVT(t *testing.T) {
	want := []byte{Sync1, Sync2, ClassNAV, IDNAVPVT, 0, 0, 0x08, 0x19}
	got := PollNAVPVT()
	if string(got) != string(want) {
		t.Errorf("PollNAVPVT = % x, want % x", got, want)
	}
}

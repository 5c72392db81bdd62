package ubx

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// fakeSerial отдаёт заранее записанный ответ; пустое чтение ведёт себя как таймаут порта.
type fakeSerial struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (f *fakeSerial) Read(b []byte) (int, error) {
	if f.in.Len() == 0 {
		return 0, nil
	}
	return f.in.Read(b)
}

func (f *fakeSerial) Write(b []byte) (int, error) { return f.out.Write(b) }
func (f *fakeSerial) Close() error               { return nil }

func newTestPort(s *fakeSerial) *Port {
	p := NewPort(s)
	t0 := time.Unix(0, 0)
	p.now = func() time.Time {
		t0 = t0.Add(10 * time.Millisecond)
		return t0
	}
	return p
}

func ack(id uint8) []byte {
	return Frame{Class: ClassACK, ID: id, Payload: []byte{ClassCFG, IDTP5}}.Encode()
}

func TestConfigureAck(t *testing.T) {
	s := &fakeSerial{}
	// До ACK приходит NMEA и чужой ACK.
	s.in.WriteString("$GNGGA,*00\r\n")
	s.in.Write(Frame{Class: ClassACK, ID: IDACKACK, Payload: []byte{ClassCFG, 0x01}}.Encode())
	s.in.Write(ack(IDACKACK))
	p := newTestPort(s)

	tp := TP5FromConfig(testPulse())
	if err := p.Configure(tp, time.Second); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if !bytes.Equal(s.out.Bytes(), BuildCFGTP5(tp)) {
		t.Error("в порт записан не CFG-TP5")
	}
}

func TestConfigureNak(t *testing.T) {
	s := &fakeSerial{}
	s.in.Write(ack(IDACKNAK))
	p := newTestPort(s)
	if err := p.Configure(TP5FromConfig(testPulse()), time.Second); !errors.Is(err, ErrNak) {
		t.Errorf("ожидалась ErrNak, получено %v", err)
	}
}

func TestConfigureTimeout(t *testing.T) {
	p := newTestPort(&fakeSerial{})
	if err := p.Configure(TP5FromConfig(testPulse()), 100*time.Millisecond); !errors.Is(err, ErrNoResponse) {
		t.Errorf("ожидалась ErrNoResponse, получено %v", err)
	}
}

func TestReadTP5(t *testing.T) {
	s := &fakeSerial{}
	want := TP5FromConfig(testPulse())
	s.in.Write(Frame{Class: ClassCFG, ID: IDTP5, Payload: want.Marshal()}.Encode())
	s.in.Write(ack(IDACKACK))
	p := newTestPort(s)
	got, err := p.ReadTP5(0, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("ReadTP5 = %v, want %v", got, want)
	}
	if !bytes.Equal(s.out.Bytes(), PollTP5(0)) {
		t.Errorf("запрос = % x", s.out.Bytes())
	}
}

func TestTimeFix(t *testing.T) {
	s := &fakeSerial{}
	payload := makeNAVPVT(NavPVTValidDate|NavPVTValidTime|NavPVTValidFullyResolved, NavPVTGnssFixOK,
		2026, 3, 1, 0, 0, 5, 0)
	s.in.Write(Frame{Class: ClassNAV, ID: IDNAVPVT, Payload: payload}.Encode())
	fix, err := newTestPort(s).TimeFix(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !fix.Locked || fix.UTC.Year() != 2026 {
		t.Errorf("fix = %+v", fix)
	}
}

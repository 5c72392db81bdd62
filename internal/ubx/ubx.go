// Package ubx — минимальный UBX-протокол u-blox для настройки time pulse приёмника,
// выход которого подаётся на вход прерывания.
package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sync bytes для UBX протокола
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Классы и ID сообщений
const (
	ClassNAV = 0x01
	ClassACK = 0x05
	ClassCFG = 0x06

	IDNAVPVT = 0x07 // NAV-PVT: position, velocity, time
	IDACKNAK = 0x00
	IDACKACK = 0x01
	IDTP5    = 0x31 // CFG-TP5 Time Pulse
)

// headerSize — sync(2) + class + id + length(2).
const headerSize = 6

// maxPayload — длиннее сообщений приёмник не шлёт; больше — значит, потеряли синхронизацию.
const maxPayload = 1024

var (
	// ErrChecksum — контрольная сумма кадра не сошлась.
	ErrChecksum = errors.New("ubx checksum mismatch")
	// ErrFrameTooLong — в заголовке длина больше maxPayload.
	ErrFrameTooLong = errors.New("ubx frame too long")
)

// Frame — одно UBX сообщение без sync и контрольной суммы.
type Frame struct {
	Class   uint8
	ID      uint8
	Payload []byte
}

// Is — кадр с данными class/id.
func (f Frame) Is(class, id uint8) bool {
	return f.Class == class && f.ID == id
}

func (f Frame) String() string {
	return fmt.Sprintf("ubx %02x-%02x len=%d", f.Class, f.ID, len(f.Payload))
}

// Checksum вычисляет UBX контрольную сумму (без sync bytes)
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Encode собирает полный пакет: header + payload + checksum
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, headerSize+len(f.Payload)+2)
	buf = append(buf, Sync1, Sync2, f.Class, f.ID)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Payload)))
	buf = append(buf, f.Payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// ReadFrame читает один кадр: пропускает байты до sync (NMEA и мусор), затем
// заголовок, payload и контрольную сумму.
func ReadFrame(r io.Reader) (Frame, error) {
	var prev, b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Frame{}, err
		}
		if prev[0] == Sync1 && b[0] == Sync2 {
			break
		}
		prev = b
	}
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	length := int(binary.LittleEndian.Uint16(hdr[2:4]))
	if length > maxPayload {
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameTooLong, length)
	}
	rest := make([]byte, length+2)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Frame{}, err
	}
	f := Frame{Class: hdr[0], ID: hdr[1], Payload: rest[:length]}
	sum := append(hdr[:], rest[:length]...)
	ckA, ckB := Checksum(sum)
	if rest[length] != ckA || rest[length+1] != ckB {
		return f, ErrChecksum
	}
	return f, nil
}

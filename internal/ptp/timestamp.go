// Package ptp models the hardware clock: the 80-bit fixed-point timestamp
// format, the PTP peripheral, and the scheduled start/stop registers.
package ptp

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// TimestampBits is the width of the hardware timestamp: 48 bits of
	// whole seconds over 32 bits of nanoseconds.
	TimestampBits = 80
	NanosBits     = 32
	// TimestampSize is the on-wire timestamp width in bytes.
	TimestampSize = TimestampBits / 8

	secondsMask = uint64(1)<<(TimestampBits-NanosBits) - 1

	// TimeLayout is how operators write absolute instants (local time).
	TimeLayout      = "2006-01-02 15:04:05.000000"
	timeLayoutNoSub = "2006-01-02 15:04:05"
)

// Timestamp is an exact UNIX instant as the hardware represents it.
// Keeping seconds and nanoseconds as integers preserves the full 80-bit
// precision; a float64 cannot hold every distinct register encoding.
type Timestamp struct {
	Seconds uint64 // 48 bits used
	Nanos   uint32
}

// FromRegisters assembles a Timestamp from the three clock registers.
func FromRegisters(upper, lower, sub uint32) Timestamp {
	return Timestamp{
		Seconds: uint64(upper)<<32 | uint64(lower),
		Nanos:   sub,
	}
}

// Registers splits the timestamp into the three clock register values.
func (t Timestamp) Registers() (upper, lower, sub uint32) {
	return uint32(t.Seconds >> 32), uint32(t.Seconds & 0xFFFF_FFFF), t.Nanos
}

// FromTime converts a wall-clock time.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: uint64(t.Unix()), Nanos: uint32(t.Nanosecond())}
}

// Time converts to wall-clock time. Only valid for instants representable
// by time.Time; the raw register form has a wider range.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nanos))
}

// Parse reads an operator-supplied local time string; the sub-second part
// is optional.
func Parse(s string) (Timestamp, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, time.Local); err == nil {
		return FromTime(t), nil
	}
	t, err := time.ParseInLocation(timeLayoutNoSub, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("bad time %q (want %q)", s, TimeLayout)
	}
	return FromTime(t), nil
}

func (t Timestamp) String() string {
	return t.Time().Format(TimeLayout)
}

// Sub returns t - o in nanoseconds.
func (t Timestamp) Sub(o Timestamp) int64 {
	return (int64(t.Seconds)-int64(o.Seconds))*int64(time.Second) +
		int64(t.Nanos) - int64(o.Nanos)
}

// Before reports whether t precedes o.
func (t Timestamp) Before(o Timestamp) bool {
	return t.Seconds < o.Seconds || (t.Seconds == o.Seconds && t.Nanos < o.Nanos)
}

// TimestampFromBytes decodes the big-endian 80-bit form embedded in
// captured records.
func TimestampFromBytes(b []byte) (Timestamp, error) {
	if len(b) < TimestampSize {
		return Timestamp{}, fmt.Errorf("timestamp needs %d bytes, have %d", TimestampSize, len(b))
	}
	hi := binary.BigEndian.Uint16(b[0:2])
	lo := binary.BigEndian.Uint64(b[2:10])
	raw := uint64(hi)<<32 | lo>>32 // top 48 bits are seconds
	return Timestamp{
		Seconds: raw & secondsMask,
		Nanos:   uint32(lo),
	}, nil
}

// Bytes encodes the big-endian 80-bit form.
func (t Timestamp) Bytes() [TimestampSize]byte {
	var b [TimestampSize]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(t.Seconds>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(t.Seconds))
	binary.BigEndian.PutUint32(b[6:10], t.Nanos)
	return b
}

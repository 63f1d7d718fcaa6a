package hbm

import (
	"fmt"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/ptp"
)

// Sizes in bytes. Records are padded to the memory bus beat so the
// packetizer can stream them without realignment.
const (
	BeatSize           = 64
	MemAlignSize       = 64
	AxiTransactionSize = 4096
)

// PaddedSize rounds a record size up to the next alignment boundary.
func PaddedSize(dataSize int) int {
	if rem := dataSize % MemAlignSize; rem != 0 {
		return dataSize + MemAlignSize - rem
	}
	return dataSize
}

// paddedTimestampSize is the timestamp field padded to a full beat.
var paddedTimestampSize = PaddedSize(ptp.TimestampSize)

// Stride is the virtual-address distance between consecutive records for
// the given packet size.
func Stride(packetSize int, timestamped bool) int {
	s := PaddedSize(packetSize)
	if timestamped {
		s += paddedTimestampSize
	}
	return s
}

// RecordSource yields (payload, timestamp) pairs; it returns io.EOF after
// the last record.
type RecordSource interface {
	Next() (payload []byte, ts ptp.Timestamp, err error)
}

// RecordSink consumes decoded records.
type RecordSink interface {
	WriteRecord(payload []byte, ts ptp.Timestamp) error
}

// LoadSummary describes a completed load.
type LoadSummary struct {
	PacketSize int
	PaddedSize int
	Packets    uint64
	Bytes      int64
}

// Loader writes a packet stream into the buffers at a fixed stride. The
// first record fixes the packet size for the whole stream; the hardware
// cannot vary packet size mid-session.
type Loader struct {
	bm          *BufferMap
	timestamped bool

	packetSize int
	stride     int
	address    int64
	packets    uint64
	scratch    []byte
}

// NewLoader creates a Loader. packetSize <= 0 adopts the first record's
// size; a positive value enforces a pre-configured size from the first
// record on.
func NewLoader(bm *BufferMap, packetSize int, timestamped bool) *Loader {
	l := &Loader{bm: bm, timestamped: timestamped}
	if packetSize > 0 {
		l.fix(packetSize)
	}
	return l
}

func (l *Loader) fix(packetSize int) {
	l.packetSize = packetSize
	l.stride = Stride(packetSize, l.timestamped)
	l.scratch = make([]byte, l.stride)
}

// Append places one record at the next stride boundary.
func (l *Loader) Append(payload []byte, ts ptp.Timestamp) error {
	if l.packetSize == 0 {
		l.fix(len(payload))
	} else if len(payload) != l.packetSize {
		return fmt.Errorf("%w: packet %d is %d bytes, stream established %d",
			core.ErrPacketSizeMismatch, l.packets+1, len(payload), l.packetSize)
	}
	copy(l.scratch, payload)
	for i := l.packetSize; i < len(l.scratch); i++ {
		l.scratch[i] = 0
	}
	if l.timestamped {
		b := ts.Bytes()
		copy(l.scratch[PaddedSize(l.packetSize):], b[:])
	}
	if err := l.bm.Write(l.scratch, l.address); err != nil {
		return err
	}
	l.address += int64(l.stride)
	l.packets++
	return nil
}

// LoadAll drains a RecordSource into the buffers.
func (l *Loader) LoadAll(src RecordSource) (LoadSummary, error) {
	for {
		payload, ts, err := src.Next()
		if err != nil {
			if isEOF(err) {
				break
			}
			return l.Summary(), err
		}
		if err := l.Append(payload, ts); err != nil {
			return l.Summary(), err
		}
	}
	if l.packets == 0 {
		return l.Summary(), core.ErrNoPackets
	}
	return l.Summary(), nil
}

// Summary reports what has been loaded so far.
func (l *Loader) Summary() LoadSummary {
	return LoadSummary{
		PacketSize: l.packetSize,
		PaddedSize: PaddedSize(l.packetSize),
		Packets:    l.packets,
		Bytes:      l.address,
	}
}

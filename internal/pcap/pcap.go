// Package pcap reads and writes capture files. Legacy pcap (nanosecond
// resolution) and pcapng are both supported; the format is chosen by file
// extension, .pcapng selecting next-generation.
package pcap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/hashicorp/go-multierror"

	"firestige.xyz/strix/internal/ptp"
)

// DefaultSnapLen is the snapshot length written into file headers.
const DefaultSnapLen = 9000

// IsNextGen reports whether the path names a pcapng file.
func IsNextGen(path string) bool {
	return filepath.Ext(path) == ".pcapng"
}

type packetDataReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Reader yields (payload, timestamp) records from a capture file.
type Reader struct {
	f *os.File
	r packetDataReader
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r packetDataReader
	if IsNextGen(path) {
		ng, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open pcapng %s: %w", path, err)
		}
		r = ng
	} else {
		pr, err := pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open pcap %s: %w", path, err)
		}
		r = pr
	}
	return &Reader{f: f, r: r}, nil
}

// Next returns the next record; io.EOF after the last one.
func (r *Reader) Next() ([]byte, ptp.Timestamp, error) {
	data, ci, err := r.r.ReadPacketData()
	if err != nil {
		return nil, ptp.Timestamp{}, err
	}
	return data, ptp.FromTime(ci.Timestamp), nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}

type packetWriter interface {
	WritePacket(ci gopacket.CaptureInfo, data []byte) error
}

// Writer stores (payload, timestamp) records into a capture file.
type Writer struct {
	f  *os.File
	w  packetWriter
	ng *pcapgo.NgWriter
}

func CreateWriter(path string, snapLen uint32) (*Writer, error) {
	if snapLen == 0 {
		snapLen = DefaultSnapLen
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f}
	if IsNextGen(path) {
		ng, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create pcapng %s: %w", path, err)
		}
		w.w, w.ng = ng, ng
	} else {
		pw := pcapgo.NewWriterNanos(f)
		if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
			f.Close()
			return nil, fmt.Errorf("create pcap %s: %w", path, err)
		}
		w.w = pw
	}
	return w, nil
}

// WriteRecord appends one record.
func (w *Writer) WriteRecord(payload []byte, ts ptp.Timestamp) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts.Time(),
		CaptureLength: len(payload),
		Length:        len(payload),
	}
	return w.w.WritePacket(ci, payload)
}

func (w *Writer) Close() error {
	var result *multierror.Error
	if w.ng != nil {
		result = multierror.Append(result, w.ng.Flush())
	}
	result = multierror.Append(result, w.f.Close())
	return result.ErrorOrNil()
}

// PacketSizeOf inspects the first packet of a capture file. Streams are
// assumed to be uniform; only the first packet is read.
func PacketSizeOf(path string) (int, error) {
	r, err := OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	payload, _, err := r.Next()
	if err != nil {
		return 0, fmt.Errorf("%s has no packets: %w", path, err)
	}
	return len(payload), nil
}

// CountPackets counts the records in a capture file.
func CountPackets(path string) (uint64, error) {
	r, err := OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	var n uint64
	for {
		if _, _, err := r.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		n++
	}
}

package pcap

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/ptp"
)

func writeTestFile(t *testing.T, path string, payloads [][]byte, base ptp.Timestamp) {
	t.Helper()
	w, err := CreateWriter(path, 0)
	require.NoError(t, err)
	ts := base
	for _, p := range payloads {
		require.NoError(t, w.WriteRecord(p, ts))
		ts.Nanos += 1000
	}
	require.NoError(t, w.Close())
}

func makePayloads(n, size int) [][]byte {
	payloads := make([][]byte, n)
	for i := range payloads {
		p := make([]byte, size)
		for j := range p {
			p[j] = byte(i ^ j)
		}
		payloads[i] = p
	}
	return payloads
}

func TestIsNextGen(t *testing.T) {
	assert.True(t, IsNextGen("out.pcapng"))
	assert.False(t, IsNextGen("out.pcap"))
	assert.False(t, IsNextGen("out"))
}

func TestReadWriteRoundTrip(t *testing.T) {
	for _, ext := range []string{".pcap", ".pcapng"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "capture"+ext)
			payloads := makePayloads(4, 120)
			base := ptp.Timestamp{Seconds: 1_700_000_000, Nanos: 500}
			writeTestFile(t, path, payloads, base)

			r, err := OpenReader(path)
			require.NoError(t, err)
			defer r.Close()

			for i, want := range payloads {
				payload, ts, err := r.Next()
				require.NoError(t, err, "record %d", i)
				assert.Equal(t, want, payload, "record %d", i)
				assert.Equal(t, base.Seconds, ts.Seconds, "record %d", i)
				assert.Equal(t, base.Nanos+uint32(i)*1000, ts.Nanos, "record %d", i)
			}
			_, _, err = r.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestPacketSizeOf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sized.pcap")
	writeTestFile(t, path, makePayloads(3, 777), ptp.Timestamp{Seconds: 1})

	size, err := PacketSizeOf(path)
	require.NoError(t, err)
	assert.Equal(t, 777, size)
}

func TestPacketSizeOfEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pcap")
	writeTestFile(t, path, nil, ptp.Timestamp{})

	_, err := PacketSizeOf(path)
	assert.Error(t, err)
}

func TestCountPackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.pcap")
	writeTestFile(t, path, makePayloads(7, 64), ptp.Timestamp{Seconds: 1})

	n, err := CountPackets(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "nope.pcap"))
	assert.Error(t, err)
}

package hbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/fpga"
)

// setEndAddrs programs the per-buffer high-water marks for a capture of
// totalBytes spread across the buffers in order.
func setEndAddrs(t *testing.T, sim *fpga.Simulator, capacities []int64, totalBytes int64) {
	t.Helper()
	for i, c := range capacities {
		n := totalBytes
		if n > c {
			n = c
		}
		if n < 0 {
			n = 0
		}
		require.NoError(t, sim.WriteRegister(fpga.RxBufferEndAddr(i+1), uint64(n)))
		totalBytes -= n
	}
}

func loadCapture(t *testing.T, bm *BufferMap, records []record) {
	t.Helper()
	l := NewLoader(bm, 0, true)
	for _, r := range records {
		require.NoError(t, l.Append(r.payload, r.ts))
	}
}

func TestDumpRoundTrip(t *testing.T) {
	caps := []int64{2048, 2048}
	sim, bm := newTestMap(t, caps)

	records := makeRecords(5, 100) // stride 192 with timestamp
	loadCapture(t, bm, records)
	setEndAddrs(t, sim, caps, 5*192)

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 0).Dump(&sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), stats.Packets)
	assert.Equal(t, int64(500), stats.Bytes)
	require.Len(t, sink.records, 5)
	for i, r := range records {
		assert.Equal(t, r.payload, sink.records[i].payload, "record %d", i)
		assert.Equal(t, r.ts, sink.records[i].ts, "record %d", i)
	}
	assert.Equal(t, records[0].ts, stats.First)
	assert.Equal(t, records[4].ts, stats.Last)
	assert.Equal(t, int64(4000), stats.DurationNanos)
}

// A record straddling two buffers is reassembled from the tail of one and
// the head of the next.
func TestDumpCarriesPartialRecords(t *testing.T) {
	caps := []int64{320, 640} // stride 192: record 2 splits 128/64
	sim, bm := newTestMap(t, caps)

	records := makeRecords(3, 100)
	loadCapture(t, bm, records)
	setEndAddrs(t, sim, caps, 3*192)

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 0).Dump(&sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Packets)
	require.Len(t, sink.records, 3)
	for i, r := range records {
		assert.Equal(t, r.payload, sink.records[i].payload, "record %d", i)
		assert.Equal(t, r.ts, sink.records[i].ts, "record %d", i)
	}
}

func TestDumpStopsAtMaxPackets(t *testing.T) {
	caps := []int64{4096}
	sim, bm := newTestMap(t, caps)

	loadCapture(t, bm, makeRecords(10, 100))
	setEndAddrs(t, sim, caps, 10*192)

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 3).Dump(&sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Packets)
	assert.Len(t, sink.records, 3)
}

// A zero end address means nothing was captured into that buffer, and the
// hardware fills buffers in order, so the walk stops there.
func TestDumpStopsAtEmptyBuffer(t *testing.T) {
	caps := []int64{2048, 2048, 2048}
	sim, bm := newTestMap(t, caps)

	loadCapture(t, bm, makeRecords(2, 100))
	require.NoError(t, sim.WriteRegister(fpga.RxBufferEndAddr(1), 2*192))
	// buffer 2 empty; a stale value in buffer 3 must not be read
	require.NoError(t, sim.WriteRegister(fpga.RxBufferEndAddr(3), 999))

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 0).Dump(&sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Packets)
}

// A trailing partial record with no continuation is dropped, not emitted
// truncated.
func TestDumpDiscardsTrailingPartial(t *testing.T) {
	caps := []int64{1024}
	sim, bm := newTestMap(t, caps)

	loadCapture(t, bm, makeRecords(3, 100))
	setEndAddrs(t, sim, caps, 2*192+96)

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 0).Dump(&sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Packets)
	assert.Len(t, sink.records, 2)
}

func TestDumpNothingCaptured(t *testing.T) {
	sim, bm := newTestMap(t, []int64{1024})

	var sink collectSink
	stats, err := NewDumper(bm, sim, 100, true, 0).Dump(&sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.Packets)
	assert.Equal(t, int64(0), stats.DurationNanos)
	assert.Empty(t, sink.records)
}

func TestDumpStatsRate(t *testing.T) {
	s := DumpStats{Bytes: 1250, DurationNanos: 100}
	assert.InDelta(t, 100.0, s.RateGbps(), 1e-9)
	assert.Equal(t, 0.0, DumpStats{Bytes: 100}.RateGbps())
}

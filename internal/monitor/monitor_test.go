package monitor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/ptp"
)

func TestSnapshot(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	require.NoError(t, sim.WriteRegister(fpga.RegTxEnable, 1))
	require.NoError(t, sim.WriteRegister(fpga.RegTxPacketSize, 8000))
	require.NoError(t, sim.WriteRegister(fpga.RegTxPacketCountLo, 42))
	require.NoError(t, sim.WriteRegister(fpga.RegRxPacketsToCapture, 7))

	ts := ptp.Timestamp{Seconds: 1_800_000_000}
	require.NoError(t, ptp.NewScheduler(sim).SetTxStart(&ts))

	var buf bytes.Buffer
	require.NoError(t, Snapshot(&buf, sim))
	out := buf.String()

	assert.Contains(t, out, "Tx Status")
	assert.Contains(t, out, "Rx Status")
	assert.Contains(t, out, "Clock")
	assert.Contains(t, out, "Packets Sent")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "8000")
	assert.Contains(t, out, "Transmit start time")
	// only tx start is scheduled
	assert.Contains(t, out, "unscheduled")
}

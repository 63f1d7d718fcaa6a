package ptp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/fpga"
)

func TestCommandBumpsSequence(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	p := NewPeripheral(sim)

	require.NoError(t, p.Command(CmdEnable))
	cmd, _ := sim.ReadRegister(fpga.RegPtpCmd)
	seq, _ := sim.ReadRegister(fpga.RegPtpCmdSeq)
	assert.Equal(t, uint64(CmdEnable), cmd)
	assert.Equal(t, uint64(1), seq)

	require.NoError(t, p.Command(CmdPtpMode))
	seq, _ = sim.ReadRegister(fpga.RegPtpCmdSeq)
	assert.Equal(t, uint64(2), seq)
}

// The hardware stores the configurable MAC bytes shuffled across the two
// profile registers; writing then reading must return the original value.
func TestUserMACAddressRoundTrip(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	p := NewPeripheral(sim)

	require.NoError(t, p.SetUserMACAddress(0xABCDEF))
	hi, _ := sim.ReadRegister(fpga.RegPtpMacHi)
	lo, _ := sim.ReadRegister(fpga.RegPtpMacLo)
	assert.Equal(t, uint64(0xAB00_0000), hi)
	assert.Equal(t, uint64(0x0000_EFCD), lo)

	got, err := p.UserMACAddress()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCDEF), got)

	mac, err := p.MACAddress()
	require.NoError(t, err)
	assert.Equal(t, "DC:3C:F6:AB:CD:EF", mac)
}

// The fixed upper half of the MAC registers belongs to the PTP core and
// must survive a user MAC update.
func TestSetUserMACAddressPreservesFixedBytes(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	require.NoError(t, sim.WriteRegister(fpga.RegPtpMacHi, 0x11DC_3CF6))
	require.NoError(t, sim.WriteRegister(fpga.RegPtpMacLo, 0x1234_0000))

	p := NewPeripheral(sim)
	require.NoError(t, p.SetUserMACAddress(0x010203))

	hi, _ := sim.ReadRegister(fpga.RegPtpMacHi)
	lo, _ := sim.ReadRegister(fpga.RegPtpMacLo)
	assert.Equal(t, uint64(0x01DC_3CF6), hi)
	assert.Equal(t, uint64(0x1234_0302), lo)
}

func TestStartup(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	p := NewPeripheral(sim)
	require.NoError(t, p.Startup(0x000042, 24))

	domain, _ := sim.ReadRegister(fpga.RegPtpDomainNum)
	assert.Equal(t, uint64(24), domain)
	cmd, _ := sim.ReadRegister(fpga.RegPtpCmd)
	assert.Equal(t, uint64(CmdReloadProfile), cmd)
	seq, _ := sim.ReadRegister(fpga.RegPtpCmdSeq)
	assert.Equal(t, uint64(1), seq)
}

func TestSchedulerProgramAndClear(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	s := NewScheduler(sim)

	ts := Timestamp{Seconds: 0x0001_0000_0002, Nanos: 42}
	require.NoError(t, s.SetTxStart(&ts))

	got, err := s.TxStart()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ts, *got)

	upper, _ := sim.ReadRegister(fpga.RegTxStartSecondsUpper)
	lower, _ := sim.ReadRegister(fpga.RegTxStartSecondsLower)
	sub, _ := sim.ReadRegister(fpga.RegTxStartSubSeconds)
	assert.Equal(t, uint64(1), upper)
	assert.Equal(t, uint64(2), lower)
	assert.Equal(t, uint64(42), sub)

	// nil clears the enable bit only
	require.NoError(t, s.SetTxStart(nil))
	got, err = s.TxStart()
	require.NoError(t, err)
	assert.Nil(t, got)
	lower, _ = sim.ReadRegister(fpga.RegTxStartSecondsLower)
	assert.Equal(t, uint64(2), lower)
}

func TestSchedulerNow(t *testing.T) {
	sim := fpga.NewSimulator(nil)
	require.NoError(t, sim.WriteRegister(fpga.RegCurrentPtpSecondsUpper, 0x12))
	require.NoError(t, sim.WriteRegister(fpga.RegCurrentPtpSecondsLower, 0x3456_789A))
	require.NoError(t, sim.WriteRegister(fpga.RegCurrentPtpSubSeconds, 7))

	s := NewScheduler(sim)
	now, err := s.Now()
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Seconds: 0x12_3456_789A, Nanos: 7}, now)
}

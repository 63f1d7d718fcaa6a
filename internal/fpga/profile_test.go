package fpga

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
)

const testProfileYAML = `
personality: GENX
min_version: 1.2.0
registers:
  tx_enable: 0x1000
  tx_packet_size: 0x1004
buffers:
  - 2G
  - 2G
  - 512M
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, testProfileYAML))
	require.NoError(t, err)

	assert.Equal(t, "GENX", p.Personality)
	assert.Equal(t, "1.2.0", p.MinVersion)

	addr, err := p.Address(RegTxEnable)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1000), addr)

	_, err = p.Address(RegRxComplete)
	assert.ErrorIs(t, err, core.ErrUnknownRegister)

	caps, err := p.BufferCapacities()
	require.NoError(t, err)
	assert.Equal(t, []int64{2 << 30, 2 << 30, 512 << 20}, caps)
}

func TestLoadProfileRejectsNoBuffers(t *testing.T) {
	_, err := LoadProfile(writeProfile(t, "personality: GENX\n"))
	assert.Error(t, err)
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCheckFirmware(t *testing.T) {
	sim := NewSimulator(nil)
	require.NoError(t, sim.SeedFirmware("GENX", "1.4.2"))

	p, err := ReadPersonality(sim)
	require.NoError(t, err)
	assert.Equal(t, "GENX", p)

	v, err := ReadVersion(sim)
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", v.String())

	assert.NoError(t, CheckFirmware(sim, "GENX", "1.2.0"))
	assert.NoError(t, CheckFirmware(sim, "GENX", "1.4.2"))
	assert.NoError(t, CheckFirmware(sim, "GENX", ""))

	// newer minor required
	err = CheckFirmware(sim, "GENX", "1.5.0")
	assert.ErrorIs(t, err, core.ErrBadFirmware)
	// a different major changes the register map, newer or not
	err = CheckFirmware(sim, "GENX", "0.9.0")
	assert.ErrorIs(t, err, core.ErrBadFirmware)
	// wrong personality
	err = CheckFirmware(sim, "CORR", "1.2.0")
	assert.ErrorIs(t, err, core.ErrBadFirmware)

	_, err = parseVersion("1.2")
	assert.Error(t, err)
}

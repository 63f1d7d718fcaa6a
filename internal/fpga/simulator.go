package fpga

import (
	"fmt"
	"sync"

	"firestige.xyz/strix/internal/core"
)

// Simulator is an in-memory register file plus staging buffers. It stands in
// for the real card during tests and --simulate runs. Register writes land in
// a plain map; tests poke registers directly to emulate hardware progress.
type Simulator struct {
	mu        sync.RWMutex
	registers map[Register]uint64
	buffers   [][]byte
}

// NewSimulator allocates buffers of the given capacities (1-based indexing
// at the access methods, matching the hardware numbering).
func NewSimulator(capacities []int64) *Simulator {
	bufs := make([][]byte, len(capacities))
	for i, c := range capacities {
		bufs[i] = make([]byte, c)
	}
	return &Simulator{
		registers: make(map[Register]uint64),
		buffers:   bufs,
	}
}

func (s *Simulator) ReadRegister(reg Register) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registers[reg], nil
}

func (s *Simulator) WriteRegister(reg Register, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[reg] = value
	return nil
}

func (s *Simulator) checkRange(buffer int, length, offset int64) error {
	if buffer < 1 || buffer > len(s.buffers) {
		return fmt.Errorf("%w: buffer %d of %d", core.ErrDevice, buffer, len(s.buffers))
	}
	if offset < 0 || length < 0 || offset+length > int64(len(s.buffers[buffer-1])) {
		return fmt.Errorf("%w: buffer %d range [%d, %d)", core.ErrDevice, buffer, offset, offset+length)
	}
	return nil
}

func (s *Simulator) WriteMemory(buffer int, data []byte, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRange(buffer, int64(len(data)), offset); err != nil {
		return err
	}
	copy(s.buffers[buffer-1][offset:], data)
	return nil
}

func (s *Simulator) ReadMemory(buffer int, length int64, offset int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRange(buffer, length, offset); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, s.buffers[buffer-1][offset:offset+length])
	return out, nil
}

// SeedFirmware programs the identification registers so firmware checks
// pass against the simulated card.
func (s *Simulator) SeedFirmware(personality, version string) error {
	if len(personality) != 4 {
		return fmt.Errorf("%w: personality %q must be 4 characters", core.ErrDevice, personality)
	}
	var code uint64
	for _, c := range []byte(personality) {
		code = code<<8 | uint64(c)
	}
	var v FirmwareVersion
	if version != "" {
		var err error
		if v, err = parseVersion(version); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[RegFirmwarePersonality] = code
	s.registers[RegFirmwareMajorVersion] = v.Major
	s.registers[RegFirmwareMinorVersion] = v.Minor
	s.registers[RegFirmwarePatchVersion] = v.Patch
	return nil
}

// BufferCapacities reports the simulated buffer sizes.
func (s *Simulator) BufferCapacities() []int64 {
	caps := make([]int64, len(s.buffers))
	for i, b := range s.buffers {
		caps[i] = int64(len(b))
	}
	return caps
}

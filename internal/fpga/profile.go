package fpga

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"firestige.xyz/strix/internal/core"
)

// Profile describes one firmware build: the personality code it reports,
// the register address map, and the staging buffer layout. Profiles ship as
// YAML next to the firmware image.
type Profile struct {
	Personality string            `yaml:"personality"`
	MinVersion  string            `yaml:"min_version"`
	Registers   map[string]uint32 `yaml:"registers"`
	Buffers     []string          `yaml:"buffers"`
}

func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if len(p.Buffers) == 0 {
		return nil, fmt.Errorf("profile %s: no buffers declared", path)
	}
	return &p, nil
}

// Address resolves a register name against the profile map.
func (p *Profile) Address(reg Register) (uint32, error) {
	addr, ok := p.Registers[string(reg)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownRegister, reg)
	}
	return addr, nil
}

// BufferCapacities parses the declared buffer sizes.
func (p *Profile) BufferCapacities() ([]int64, error) {
	caps := make([]int64, len(p.Buffers))
	for i, spec := range p.Buffers {
		n, err := ParseMemSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i+1, err)
		}
		caps[i] = n
	}
	return caps, nil
}

// ParseMemSpec parses a memory size like "2G", "512M" or "4096k"
// (powers of 1024).
func ParseMemSpec(spec string) (int64, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return 0, fmt.Errorf("empty memory size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad memory size %q", spec)
	}
	return n * mult, nil
}

package fpga

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/strix/internal/core"
)

// FirmwareVersion is a semantic firmware version read from the system
// registers.
type FirmwareVersion struct {
	Major, Minor, Patch uint64
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ReadPersonality decodes the 4-character personality code register.
func ReadPersonality(io RegisterIO) (string, error) {
	raw, err := io.ReadRegister(RegFirmwarePersonality)
	if err != nil {
		return "", err
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(raw))
	return string(b[:]), nil
}

func ReadVersion(io RegisterIO) (FirmwareVersion, error) {
	var v FirmwareVersion
	var err error
	if v.Major, err = io.ReadRegister(RegFirmwareMajorVersion); err != nil {
		return v, err
	}
	if v.Minor, err = io.ReadRegister(RegFirmwareMinorVersion); err != nil {
		return v, err
	}
	if v.Patch, err = io.ReadRegister(RegFirmwarePatchVersion); err != nil {
		return v, err
	}
	return v, nil
}

// CheckFirmware verifies the card reports the expected personality and at
// least the minimum version, with a matching major (a new major changes the
// register map).
func CheckFirmware(io RegisterIO, personality, minVersion string) error {
	actual, err := ReadPersonality(io)
	if err != nil {
		return err
	}
	if actual != personality {
		return fmt.Errorf("%w: personality %q, expected %q", core.ErrBadFirmware, actual, personality)
	}
	if minVersion == "" {
		return nil
	}
	min, err := parseVersion(minVersion)
	if err != nil {
		return err
	}
	ver, err := ReadVersion(io)
	if err != nil {
		return err
	}
	if ver.Major != min.Major || less(ver, min) {
		return fmt.Errorf("%w: version %s, expected >= %s with major %d",
			core.ErrBadFirmware, ver, minVersion, min.Major)
	}
	return nil
}

func less(a, b FirmwareVersion) bool {
	if a.Major != b.Major {
		return a.Major < b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor < b.Minor
	}
	return a.Patch < b.Patch
}

func parseVersion(s string) (FirmwareVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return FirmwareVersion{}, fmt.Errorf("bad version %q", s)
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return FirmwareVersion{}, fmt.Errorf("bad version %q", s)
		}
		nums[i] = n
	}
	return FirmwareVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

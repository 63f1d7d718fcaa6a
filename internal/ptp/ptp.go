package ptp

import (
	"fmt"

	"firestige.xyz/strix/internal/fpga"
)

// Command is a PTP core command code.
type Command uint64

const (
	CmdReloadProfile Command = 0
	CmdEnable        Command = 1
	CmdDisable       Command = 2
	CmdServoStop     Command = 3
	CmdServoResume   Command = 4
	CmdPpsMode       Command = 5
	CmdPtpMode       Command = 6
)

// macPrefix is fixed inside the PTP core; only the low 3 bytes of the MAC
// are configurable.
const macPrefix = "DC:3C:F6"

// Peripheral drives the PTP core configuration registers.
type Peripheral struct {
	regs fpga.RegisterIO
}

func NewPeripheral(regs fpga.RegisterIO) *Peripheral {
	return &Peripheral{regs: regs}
}

// Command issues a command to the PTP core by writing the code and bumping
// the sequence register.
func (p *Peripheral) Command(cmd Command) error {
	if err := p.regs.WriteRegister(fpga.RegPtpCmd, uint64(cmd)); err != nil {
		return err
	}
	seq, err := p.regs.ReadRegister(fpga.RegPtpCmdSeq)
	if err != nil {
		return err
	}
	return p.regs.WriteRegister(fpga.RegPtpCmdSeq, seq+1)
}

// Startup programs the PTP domain and MAC address and reloads the profile.
// Only the low 3 bytes of macAddress are used.
func (p *Peripheral) Startup(macAddress uint32, domain uint64) error {
	if err := p.regs.WriteRegister(fpga.RegPtpDomainNum, domain); err != nil {
		return err
	}
	if err := p.SetUserMACAddress(macAddress); err != nil {
		return err
	}
	return p.Command(CmdReloadProfile)
}

// SetUserMACAddress stores the low 3 MAC bytes in the profile registers.
// The hardware keeps byte A in the top byte of mac_hi and bytes B, C
// swapped in the low half-word of mac_lo.
func (p *Peripheral) SetUserMACAddress(mac uint32) error {
	hi, err := p.regs.ReadRegister(fpga.RegPtpMacHi)
	if err != nil {
		return err
	}
	lo, err := p.regs.ReadRegister(fpga.RegPtpMacLo)
	if err != nil {
		return err
	}
	m := uint64(mac)
	hi = (hi & 0x00FF_FFFF) | ((m & 0xFF0000) << 8)
	lo = (lo & 0xFFFF_0000) | ((m & 0xFF) << 8) | ((m & 0xFF00) >> 8)
	if err := p.regs.WriteRegister(fpga.RegPtpMacHi, hi); err != nil {
		return err
	}
	return p.regs.WriteRegister(fpga.RegPtpMacLo, lo)
}

// UserMACAddress reads back the configurable low 3 MAC bytes.
func (p *Peripheral) UserMACAddress() (uint32, error) {
	hi, err := p.regs.ReadRegister(fpga.RegPtpMacHi)
	if err != nil {
		return 0, err
	}
	lo, err := p.regs.ReadRegister(fpga.RegPtpMacLo)
	if err != nil {
		return 0, err
	}
	a := (hi & 0xFF00_0000) >> 24
	b := lo & 0xFF
	c := (lo & 0xFF00) >> 8
	return uint32(a<<16 | b<<8 | c), nil
}

// MACAddress renders the full colon-separated MAC address.
func (p *Peripheral) MACAddress() (string, error) {
	low, err := p.UserMACAddress()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%02X:%02X:%02X", macPrefix,
		(low>>16)&0xFF, (low>>8)&0xFF, low&0xFF), nil
}

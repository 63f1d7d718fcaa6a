package ptp

import (
	"firestige.xyz/strix/internal/fpga"
)

// schedule points at the register triple plus enable bit for one scheduled
// event.
type schedule struct {
	upper, lower, sub fpga.Register
	enable            fpga.Register
}

var (
	txStart = schedule{fpga.RegTxStartSecondsUpper, fpga.RegTxStartSecondsLower, fpga.RegTxStartSubSeconds, fpga.RegTxStartEnable}
	txStop  = schedule{fpga.RegTxStopSecondsUpper, fpga.RegTxStopSecondsLower, fpga.RegTxStopSubSeconds, fpga.RegTxStopEnable}
	rxStart = schedule{fpga.RegRxStartSecondsUpper, fpga.RegRxStartSecondsLower, fpga.RegRxStartSubSeconds, fpga.RegRxStartEnable}
	rxStop  = schedule{fpga.RegRxStopSecondsUpper, fpga.RegRxStopSecondsLower, fpga.RegRxStopSubSeconds, fpga.RegRxStopEnable}
)

// Scheduler programs absolute start/stop instants into the hardware clock
// registers. A nil timestamp clears the enable bit; the instant registers
// are only meaningful while the enable bit is set.
type Scheduler struct {
	regs fpga.RegisterIO
}

func NewScheduler(regs fpga.RegisterIO) *Scheduler {
	return &Scheduler{regs: regs}
}

func (s *Scheduler) program(sc schedule, t *Timestamp) error {
	if t != nil {
		upper, lower, sub := t.Registers()
		if err := s.regs.WriteRegister(sc.upper, uint64(upper)); err != nil {
			return err
		}
		if err := s.regs.WriteRegister(sc.lower, uint64(lower)); err != nil {
			return err
		}
		if err := s.regs.WriteRegister(sc.sub, uint64(sub)); err != nil {
			return err
		}
	}
	var enable uint64
	if t != nil {
		enable = 1
	}
	return s.regs.WriteRegister(sc.enable, enable)
}

func (s *Scheduler) SetTxStart(t *Timestamp) error { return s.program(txStart, t) }
func (s *Scheduler) SetTxStop(t *Timestamp) error  { return s.program(txStop, t) }
func (s *Scheduler) SetRxStart(t *Timestamp) error { return s.program(rxStart, t) }
func (s *Scheduler) SetRxStop(t *Timestamp) error  { return s.program(rxStop, t) }

func (s *Scheduler) read(sc schedule) (*Timestamp, error) {
	enabled, err := s.regs.ReadRegister(sc.enable)
	if err != nil {
		return nil, err
	}
	if enabled == 0 {
		return nil, nil
	}
	upper, err := s.regs.ReadRegister(sc.upper)
	if err != nil {
		return nil, err
	}
	lower, err := s.regs.ReadRegister(sc.lower)
	if err != nil {
		return nil, err
	}
	sub, err := s.regs.ReadRegister(sc.sub)
	if err != nil {
		return nil, err
	}
	t := FromRegisters(uint32(upper), uint32(lower), uint32(sub))
	return &t, nil
}

func (s *Scheduler) TxStart() (*Timestamp, error) { return s.read(txStart) }
func (s *Scheduler) TxStop() (*Timestamp, error)  { return s.read(txStop) }
func (s *Scheduler) RxStart() (*Timestamp, error) { return s.read(rxStart) }
func (s *Scheduler) RxStop() (*Timestamp, error)  { return s.read(rxStop) }

// Reset asserts or releases the schedule control reset. The controller
// asserts it while reprogramming instants and releases it to arm.
func (s *Scheduler) Reset(asserted bool) error {
	var v uint64
	if asserted {
		v = 1
	}
	return s.regs.WriteRegister(fpga.RegScheduleControlReset, v)
}

// Complete reports the schedule-complete debug flag.
func (s *Scheduler) Complete() (bool, error) {
	v, err := s.regs.ReadRegister(fpga.RegScheduleComplete)
	return v != 0, err
}

// Now reads the current hardware clock.
func (s *Scheduler) Now() (Timestamp, error) {
	upper, err := s.regs.ReadRegister(fpga.RegCurrentPtpSecondsUpper)
	if err != nil {
		return Timestamp{}, err
	}
	lower, err := s.regs.ReadRegister(fpga.RegCurrentPtpSecondsLower)
	if err != nil {
		return Timestamp{}, err
	}
	sub, err := s.regs.ReadRegister(fpga.RegCurrentPtpSubSeconds)
	if err != nil {
		return Timestamp{}, err
	}
	return FromRegisters(uint32(upper), uint32(lower), uint32(sub)), nil
}

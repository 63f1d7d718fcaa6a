// Package monitor renders a plain-text status snapshot of the packet
// engine and the hardware clock.
package monitor

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/ptp"
)

// row is one labelled register value.
type row struct {
	label string
	reg   fpga.Register
}

var txRows = []row{
	{"Enabled", fpga.RegTxEnable},
	{"Running", fpga.RegTxRunning},
	{"Packet Size", fpga.RegTxPacketSize},
	{"Packets to Send", fpga.RegTxTotalPackets},
	{"Loop?", fpga.RegTxLoopEnable},
	{"No. of Loops", fpga.RegTxLoops},
	{"Loop Count", fpga.RegTxLoopCount},
	{"Complete", fpga.RegTxComplete},
}

var rxRows = []row{
	{"Enabled", fpga.RegRxEnableCapture},
	{"Packet Size", fpga.RegRxPacketSize},
	{"Packets to Capture", fpga.RegRxPacketsToCapture},
	{"Complete", fpga.RegRxComplete},
}

// Snapshot writes the full status report.
func Snapshot(w io.Writer, regs fpga.RegisterIO) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Tx Status")
	if err := writeRows(tw, regs, txRows); err != nil {
		return err
	}
	sent, err := fpga.Read64(regs, fpga.RegTxPacketCountHi, fpga.RegTxPacketCountLo)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "  Packets Sent\t%d\n", sent)

	fmt.Fprintln(tw, "Rx Status")
	if err := writeRows(tw, regs, rxRows); err != nil {
		return err
	}
	received, err := fpga.Read64(regs, fpga.RegRxPacketCountHi, fpga.RegRxPacketCountLo)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "  Packets Captured\t%d\n", received)

	if err := writeClock(tw, regs); err != nil {
		return err
	}
	return tw.Flush()
}

func writeRows(tw *tabwriter.Writer, regs fpga.RegisterIO, rows []row) error {
	for _, r := range rows {
		v, err := regs.ReadRegister(r.reg)
		if err != nil {
			return fmt.Errorf("read %s: %w", r.reg, err)
		}
		fmt.Fprintf(tw, "  %s\t%d\n", r.label, v)
	}
	return nil
}

func writeClock(tw *tabwriter.Writer, regs fpga.RegisterIO) error {
	sched := ptp.NewScheduler(regs)
	now, err := sched.Now()
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "Clock")
	fmt.Fprintf(tw, "  PTP Time\t%s\n", now)
	fmt.Fprintf(tw, "  Host Time\t%s\n", time.Now().Format(ptp.TimeLayout))

	for _, s := range []struct {
		label string
		read  func() (*ptp.Timestamp, error)
	}{
		{"Transmit start time", sched.TxStart},
		{"Transmit stop time", sched.TxStop},
		{"Receive start time", sched.RxStart},
		{"Receive stop time", sched.RxStop},
	} {
		t, err := s.read()
		if err != nil {
			return err
		}
		if t == nil {
			fmt.Fprintf(tw, "  %s\tunscheduled\n", s.label)
		} else {
			fmt.Fprintf(tw, "  %s\t%s\n", s.label, t)
		}
	}
	return nil
}

// Package fpga defines the hardware access boundary: named registers and
// per-buffer memory, plus an in-memory simulator used by tests and dry runs.
package fpga

import "fmt"

// Register is a logical register name. The set of names is fixed at compile
// time; a device profile maps each name to a physical address.
type Register string

// Transmit path registers.
const (
	RegTxEnable          Register = "tx_enable"
	RegTxReset           Register = "tx_reset"
	RegTxRunning         Register = "tx_running"
	RegTxComplete        Register = "tx_complete"
	RegTxPacketSize      Register = "tx_packet_size"
	RegTxTotalPackets    Register = "tx_total_number_tx_packets"
	RegTxBurstGap        Register = "tx_burst_gap"
	RegTxPacketsPerBurst Register = "tx_packets_per_burst"
	RegTxBeatsPerPacket  Register = "tx_beats_per_packet"
	RegTxBeatsPerBurst   Register = "tx_beats_per_burst"
	RegTxBursts          Register = "tx_bursts"
	RegTxAxiTransactions Register = "tx_axi_transactions"
	RegTxLoopEnable      Register = "tx_loop_enable"
	RegTxLoops           Register = "tx_loops"
	RegTxLoopCount       Register = "tx_loop_count"
	RegTxPacketCountLo   Register = "tx_packet_count_lo"
	RegTxPacketCountHi   Register = "tx_packet_count_hi"
)

// Receive path registers.
const (
	RegRxEnableCapture    Register = "rx_enable_capture"
	RegRxResetCapture     Register = "rx_reset_capture"
	RegRxPacketSize       Register = "rx_packet_size"
	RegRxPacketsToCapture Register = "rx_packets_to_capture"
	RegRxComplete         Register = "rx_complete"
	RegRxPacketCountLo    Register = "rx_packet_count_lo"
	RegRxPacketCountHi    Register = "rx_packet_count_hi"
)

// Schedule (hardware clock) registers.
const (
	RegScheduleControlReset Register = "schedule_control_reset"
	RegScheduleComplete     Register = "schedule_debug_complete"

	RegCurrentPtpSecondsUpper Register = "current_ptp_seconds_upper"
	RegCurrentPtpSecondsLower Register = "current_ptp_seconds_lower"
	RegCurrentPtpSubSeconds   Register = "current_ptp_sub_seconds"

	RegTxStartSecondsUpper Register = "tx_start_ptp_seconds_upper"
	RegTxStartSecondsLower Register = "tx_start_ptp_seconds_lower"
	RegTxStartSubSeconds   Register = "tx_start_ptp_sub_seconds"
	RegTxStartEnable       Register = "schedule_control_tx_start_time"

	RegTxStopSecondsUpper Register = "tx_stop_ptp_seconds_upper"
	RegTxStopSecondsLower Register = "tx_stop_ptp_seconds_lower"
	RegTxStopSubSeconds   Register = "tx_stop_ptp_sub_seconds"
	RegTxStopEnable       Register = "schedule_control_tx_stop_time"

	RegRxStartSecondsUpper Register = "rx_start_ptp_seconds_upper"
	RegRxStartSecondsLower Register = "rx_start_ptp_seconds_lower"
	RegRxStartSubSeconds   Register = "rx_start_ptp_sub_seconds"
	RegRxStartEnable       Register = "schedule_control_rx_start_time"

	RegRxStopSecondsUpper Register = "rx_stop_ptp_seconds_upper"
	RegRxStopSecondsLower Register = "rx_stop_ptp_seconds_lower"
	RegRxStopSubSeconds   Register = "rx_stop_ptp_sub_seconds"
	RegRxStopEnable       Register = "schedule_control_rx_stop_time"
)

// PTP peripheral profile registers.
const (
	RegPtpDomainNum Register = "profile_domain_num"
	RegPtpMacHi     Register = "profile_mac_hi"
	RegPtpMacLo     Register = "profile_mac_lo"
	RegPtpCmd       Register = "cmd"
	RegPtpCmdSeq    Register = "cmd_seq"
)

// System identity registers.
const (
	RegFirmwarePersonality  Register = "firmware_personality"
	RegFirmwareMajorVersion Register = "firmware_major_version"
	RegFirmwareMinorVersion Register = "firmware_minor_version"
	RegFirmwarePatchVersion Register = "firmware_patch_version"
)

// RxBufferEndAddr names the capture high-water-mark register for a physical
// buffer (1-based).
func RxBufferEndAddr(buffer int) Register {
	return Register(fmt.Sprintf("rx_hbm_%d_end_addr", buffer))
}

// RegisterIO reads and writes named hardware registers. Writes take effect
// immediately; there is no batching.
type RegisterIO interface {
	ReadRegister(reg Register) (uint64, error)
	WriteRegister(reg Register, value uint64) error
}

// Read64 assembles a 64-bit counter from a hi/lo register pair.
func Read64(io RegisterIO, hi, lo Register) (uint64, error) {
	h, err := io.ReadRegister(hi)
	if err != nil {
		return 0, err
	}
	l, err := io.ReadRegister(lo)
	if err != nil {
		return 0, err
	}
	return h<<32 | l, nil
}

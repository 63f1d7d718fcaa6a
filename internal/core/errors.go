// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared across the driver. Callers test with errors.Is;
// lower layers add context via fmt.Errorf and %w.
var (
	// Buffer addressing errors
	ErrAddressOutOfRange = errors.New("strix: virtual address out of range")

	// Packet framing errors
	ErrPacketSizeMismatch = errors.New("strix: packet size mismatch")
	ErrNoPackets          = errors.New("strix: stream contains no packets")

	// Session errors
	ErrBusy      = errors.New("strix: operation already in progress")
	ErrNotLoaded = errors.New("strix: no packet stream loaded")

	// Capture-wait outcomes
	ErrCancelled         = errors.New("strix: capture cancelled")
	ErrCompletionTimeout = errors.New("strix: capture wait timed out")

	// Hardware collaborator errors
	ErrDevice          = errors.New("strix: device access failed")
	ErrUnknownRegister = errors.New("strix: unknown register")
	ErrBadFirmware     = errors.New("strix: firmware mismatch")
)

package cmd

import (
	"fmt"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/hbm"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/ptp"
	"firestige.xyz/strix/internal/session"
)

// device bundles the open card access layer shared by the commands.
type device struct {
	regs fpga.RegisterIO
	bm   *hbm.BufferMap
	ptp  *ptp.Peripheral
	ctl  *session.Controller
}

// openDevice builds the register/memory stack from the configuration.
// Simulator mode backs everything with in-process maps; real hardware
// additionally needs a profile and passes the firmware check.
func openDevice(cfg *config.Config) (*device, error) {
	caps, err := bufferCapacities(cfg)
	if err != nil {
		return nil, err
	}

	var (
		regs fpga.RegisterIO
		mem  fpga.MemoryIO
	)
	if cfg.Device.Simulate {
		sim := fpga.NewSimulator(caps)
		regs, mem = sim, sim
		log.GetLogger().Infof("using device simulator: %d buffers, %d bytes total",
			len(caps), totalCapacity(caps))
		if cfg.Device.Profile != "" {
			profile, err := fpga.LoadProfile(cfg.Device.Profile)
			if err != nil {
				return nil, err
			}
			if err := sim.SeedFirmware(profile.Personality, profile.MinVersion); err != nil {
				return nil, err
			}
			if err := fpga.CheckFirmware(regs, profile.Personality, profile.MinVersion); err != nil {
				return nil, err
			}
		}
	} else {
		// Hardware access goes through a card transport registered at
		// build time. None ships in the open tree yet; a real transport
		// must pass the firmware check before use.
		return nil, fmt.Errorf("no transport driver for card %d (run with --simulate)",
			cfg.Device.Card)
	}

	if spec := cfg.Device.ReadChunk; spec != "" {
		chunk, err := fpga.ParseMemSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("read_chunk: %w", err)
		}
		mem = fpga.NewChunkedMemory(mem, chunk)
	}

	bm, err := hbm.NewBufferMap(mem, caps)
	if err != nil {
		return nil, err
	}

	clock := ptp.NewPeripheral(regs)
	if err := clock.Startup(uint32(cfg.Device.Card), cfg.Device.PtpDomain); err != nil {
		return nil, err
	}

	ctl := session.NewController(regs, bm,
		session.WithPollInterval(cfg.Capture.PollInterval))
	return &device{regs: regs, bm: bm, ptp: clock, ctl: ctl}, nil
}

// bufferCapacities resolves the buffer layout, preferring an explicit
// config override over the profile's declaration.
func bufferCapacities(cfg *config.Config) ([]int64, error) {
	specs := cfg.Device.Buffers
	if len(specs) == 0 && cfg.Device.Profile != "" {
		profile, err := fpga.LoadProfile(cfg.Device.Profile)
		if err != nil {
			return nil, err
		}
		return profile.BufferCapacities()
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no buffers configured")
	}
	caps := make([]int64, len(specs))
	for i, spec := range specs {
		n, err := fpga.ParseMemSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i+1, err)
		}
		caps[i] = n
	}
	return caps, nil
}

func totalCapacity(caps []int64) int64 {
	var total int64
	for _, c := range caps {
		total += c
	}
	return total
}

// parseSchedule converts optional --start-time/--stop-time flag values.
func parseSchedule(start, stop string) (*ptp.Timestamp, *ptp.Timestamp, error) {
	var startTs, stopTs *ptp.Timestamp
	if start != "" {
		t, err := ptp.Parse(start)
		if err != nil {
			return nil, nil, fmt.Errorf("start time: %w", err)
		}
		startTs = &t
	}
	if stop != "" {
		t, err := ptp.Parse(stop)
		if err != nil {
			return nil, nil, fmt.Errorf("stop time: %w", err)
		}
		stopTs = &t
	}
	if startTs != nil && stopTs != nil && !startTs.Before(*stopTs) {
		return nil, nil, fmt.Errorf("stop time must be after start time")
	}
	return startTs, stopTs, nil
}

// Package session orchestrates transmit and capture sessions: loading a
// packet stream into the staging buffers, programming timing, arming the
// schedule, and draining captures back out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/hbm"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/ptp"
	"firestige.xyz/strix/internal/rate"
)

// DefaultPollInterval is how often the capture-wait worker re-checks
// completion. Completion is not time-critical at this granularity.
const DefaultPollInterval = 5 * time.Second

// State is the controller's coarse lifecycle position, for status display.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateLoaded      State = "loaded"
	StateConfiguring State = "configuring"
	StateArmed       State = "armed"
	StateRunning     State = "running"
	StateDraining    State = "draining"
)

// Controller owns one card's packet engine. It serialises load, configure,
// transmit and capture operations against itself; coordinating multiple
// controllers on one device is out of scope.
type Controller struct {
	regs  fpga.RegisterIO
	bm    *hbm.BufferMap
	sched *ptp.Scheduler
	log   log.Logger

	pollInterval time.Duration

	mu    sync.Mutex
	state State

	// loadedStream identifies the payload stream resident in the buffers;
	// empty when nothing (or a failed load) is there.
	loadedStream    string
	requestedStream string
	loadDone        chan struct{} // closed when the in-flight load finishes
	loadErr         error
	loadSummary     hbm.LoadSummary

	txParams   rate.TxParams
	configured bool

	// capture-wait worker state
	capCancel context.CancelFunc
	capDone   chan struct{}
	capResult CaptureResult
	rxTarget  uint64
}

// CaptureResult is the outcome of one capture session.
type CaptureResult struct {
	Stats hbm.DumpStats
	// Err is nil on hardware-reported completion (or count reached),
	// core.ErrCancelled when the wait was cancelled. Stats are valid in
	// both cases; a cancelled capture still drains what arrived.
	Err error
}

// Option configures a Controller.
type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

func NewController(regs fpga.RegisterIO, bm *hbm.BufferMap, opts ...Option) *Controller {
	c := &Controller{
		regs:         regs,
		bm:           bm,
		sched:        ptp.NewScheduler(regs),
		log:          log.GetLogger(),
		pollInterval: DefaultPollInterval,
		state:        StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadedStream reports the identity of the stream resident in the buffers.
func (c *Controller) LoadedStream() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedStream
}

// Load stages a packet stream into the buffers under the given identity,
// asynchronously. Loading the identity that is already resident is a no-op.
// A load requested while a different one is in flight fails with ErrBusy
// rather than queueing; both would write the same physical buffers.
func (c *Controller) Load(identity string, src hbm.RecordSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadDone != nil {
		select {
		case <-c.loadDone:
			c.loadDone = nil
		default:
			if c.requestedStream != identity {
				return fmt.Errorf("%w: still loading %q", core.ErrBusy, c.requestedStream)
			}
			return nil // requested stream is already on its way in
		}
	}
	if c.loadedStream == identity {
		c.log.Debugf("stream %q already resident, skipping load", identity)
		return nil
	}

	// The engine must be quiet before the buffers are rewritten; a
	// still-running (possibly looping) transmission would stream the new
	// stream's bytes mid-session.
	if err := c.quiesceTransmit(); err != nil {
		return fmt.Errorf("quiesce transmit: %w", err)
	}

	c.requestedStream = identity
	c.loadedStream = ""
	c.configured = false
	c.state = StateLoading
	done := make(chan struct{})
	c.loadDone = done

	go func() {
		defer close(done)
		loader := hbm.NewLoader(c.bm, 0, false)
		summary, err := loader.LoadAll(src)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			// Leave no identity behind so the next attempt reloads.
			c.loadErr = err
			c.loadedStream = ""
			c.state = StateIdle
			c.log.WithError(err).Errorf("load of %q failed", identity)
			return
		}
		c.loadErr = nil
		c.loadSummary = summary
		c.loadedStream = identity
		c.state = StateLoaded
		c.log.Infof("loaded %d packets (%d B each, %d B total) from %q",
			summary.Packets, summary.PacketSize, summary.Bytes, identity)
	}()
	return nil
}

// quiesceTransmit disables and resets the transmit engine and asserts the
// schedule reset. Transmit releases both once the new session is
// programmed. Caller holds c.mu.
func (c *Controller) quiesceTransmit() error {
	if err := c.regs.WriteRegister(fpga.RegTxEnable, 0); err != nil {
		return err
	}
	if err := c.regs.WriteRegister(fpga.RegTxReset, 1); err != nil {
		return err
	}
	return c.sched.Reset(true)
}

// WaitLoaded blocks until the in-flight load completes, reporting its
// error. Returns immediately when no load is in flight.
func (c *Controller) WaitLoaded(ctx context.Context) error {
	c.mu.Lock()
	done := c.loadDone
	c.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// ReadyToTransmit reports whether the requested stream is fully resident.
func (c *Controller) ReadyToTransmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadDone != nil {
		select {
		case <-c.loadDone:
		default:
			return false
		}
	}
	return c.loadedStream != "" && c.loadedStream == c.requestedStream
}

// Configure derives and programs the transmit parameters. Valid only once
// a stream is loaded; packet size and count come from the load summary.
func (c *Controller) Configure(cfg rate.Config) error {
	if err := c.WaitLoaded(context.Background()); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadedStream == "" {
		return core.ErrNotLoaded
	}
	c.state = StateConfiguring

	cfg.PacketSize = c.loadSummary.PacketSize
	cfg.PacketCount = c.loadSummary.Packets
	params, err := rate.Calculate(cfg)
	if err != nil {
		return err
	}
	if cfg.BurstGap == 0 {
		c.log.Infof("%.3f Gbps with %d B packets in bursts of %d gives a burst period of %d ns (%.3f Gbps achieved)",
			cfg.RateGbps, params.PacketSize, params.PacketsPerBurst, params.BurstGap,
			rate.AchievedGbps(cfg.PacketSize, int(params.PacketsPerBurst), int64(params.BurstGap)))
	}

	if err := c.writeTxParams(params); err != nil {
		return fmt.Errorf("program transmit parameters: %w", err)
	}
	c.txParams = params
	c.configured = true
	c.state = StateLoaded
	return nil
}

func (c *Controller) writeTxParams(p rate.TxParams) error {
	regs := []struct {
		reg   fpga.Register
		value uint64
	}{
		{fpga.RegTxPacketSize, p.PacketSize},
		{fpga.RegTxTotalPackets, p.PacketCount},
		{fpga.RegTxBurstGap, p.BurstGap},
		{fpga.RegTxPacketsPerBurst, p.PacketsPerBurst},
		{fpga.RegTxBeatsPerPacket, p.BeatsPerPacket},
		{fpga.RegTxBeatsPerBurst, p.BeatsPerBurst},
		{fpga.RegTxBursts, p.Bursts},
		{fpga.RegTxAxiTransactions, p.AxiTransactions},
	}
	for _, rv := range regs {
		if err := c.regs.WriteRegister(rv.reg, rv.value); err != nil {
			return err
		}
	}
	if p.LoopEnable {
		if err := c.regs.WriteRegister(fpga.RegTxLoopEnable, 1); err != nil {
			return err
		}
		return c.regs.WriteRegister(fpga.RegTxLoops, p.Loops)
	}
	return c.regs.WriteRegister(fpga.RegTxLoopEnable, 0)
}

// Transmit arms or starts transmission. With a start time the hardware
// clock fires the session and the controller is merely armed; without one
// transmission starts immediately.
func (c *Controller) Transmit(start, stop *ptp.Timestamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadedStream == "" || !c.configured {
		return core.ErrNotLoaded
	}

	if err := c.regs.WriteRegister(fpga.RegTxReset, 0); err != nil {
		return err
	}
	if stop != nil {
		c.log.Infof("scheduling transmit stop at %s", stop)
	}
	if err := c.sched.SetTxStop(stop); err != nil {
		return err
	}
	if start != nil {
		c.log.Infof("scheduling transmit start at %s", start)
	}
	if err := c.sched.SetTxStart(start); err != nil {
		return err
	}
	if err := c.sched.Reset(false); err != nil {
		return err
	}

	if start != nil {
		c.state = StateArmed
		return nil
	}
	c.log.Info("starting transmission")
	if err := c.regs.WriteRegister(fpga.RegTxEnable, 0); err != nil {
		return err
	}
	if err := c.regs.WriteRegister(fpga.RegTxEnable, 1); err != nil {
		return err
	}
	c.state = StateRunning
	return nil
}

// TxPacketCount reads the 64-bit transmitted packet counter.
func (c *Controller) TxPacketCount() (uint64, error) {
	return fpga.Read64(c.regs, fpga.RegTxPacketCountHi, fpga.RegTxPacketCountLo)
}

// RxPacketCount reads the 64-bit received packet counter.
func (c *Controller) RxPacketCount() (uint64, error) {
	return fpga.Read64(c.regs, fpga.RegRxPacketCountHi, fpga.RegRxPacketCountLo)
}

// Receive programs the capture schedule, resets and re-arms the capture
// pipeline, and starts a worker that waits for completion and then drains
// the capture to the sink. packetCount 0 means capture until the hardware
// reports complete (or the wait is cancelled); the count check is disabled.
func (c *Controller) Receive(sink hbm.RecordSink, packetSize int, packetCount uint64, start, stop *ptp.Timestamp) error {
	// A stale wait from the previous session must be gone before the
	// completion flag means anything, so stop and join it first.
	c.CancelReceive()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sched.Reset(true); err != nil {
		return err
	}
	if stop != nil {
		c.log.Infof("scheduling receive stop at %s", stop)
	}
	if err := c.sched.SetRxStop(stop); err != nil {
		return err
	}
	if start != nil {
		c.log.Infof("scheduling receive start at %s", start)
	}
	if err := c.sched.SetRxStart(start); err != nil {
		return err
	}
	if err := c.sched.Reset(false); err != nil {
		return err
	}

	if err := c.armCapture(packetSize, packetCount); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.capCancel = cancel
	c.capDone = done
	c.rxTarget = packetCount
	if start != nil {
		c.state = StateArmed
	} else {
		c.state = StateRunning
	}

	go c.waitAndDrain(ctx, done, sink, packetSize, packetCount)
	return nil
}

func (c *Controller) armCapture(packetSize int, packetCount uint64) error {
	steps := []struct {
		reg   fpga.Register
		value uint64
	}{
		{fpga.RegRxEnableCapture, 0},
		{fpga.RegRxPacketSize, uint64(packetSize)},
		{fpga.RegRxPacketsToCapture, packetCount},
		{fpga.RegRxResetCapture, 1},
		{fpga.RegRxResetCapture, 0},
		{fpga.RegRxEnableCapture, 1},
	}
	for _, s := range steps {
		if err := c.regs.WriteRegister(s.reg, s.value); err != nil {
			return fmt.Errorf("arm capture: %w", err)
		}
	}
	return nil
}

// waitAndDrain is the capture-wait worker. It polls for completion at the
// configured interval, then drains the buffers. Cancellation still drains:
// a partial capture is data, not garbage.
func (c *Controller) waitAndDrain(ctx context.Context, done chan struct{}, sink hbm.RecordSink, packetSize int, packetCount uint64) {
	defer close(done)

	waitErr := c.waitComplete(ctx, packetCount)
	if waitErr != nil && !errors.Is(waitErr, core.ErrCancelled) {
		c.setResult(CaptureResult{Err: waitErr})
		return
	}

	c.mu.Lock()
	c.state = StateDraining
	c.mu.Unlock()

	dumper := hbm.NewDumper(c.bm, c.regs, packetSize, true, packetCount)
	stats, dumpErr := dumper.Dump(sink)
	if dumpErr != nil {
		c.setResult(CaptureResult{Stats: stats, Err: dumpErr})
		return
	}
	if stats.Packets > 0 && stats.DurationNanos > 0 {
		c.log.Infof("capture duration %d.%09d s, average rate %.3f Gbps",
			stats.DurationNanos/1e9, stats.DurationNanos%1e9, stats.RateGbps())
	}
	c.setResult(CaptureResult{Stats: stats, Err: waitErr})
}

func (c *Controller) setResult(r CaptureResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capResult = r
	c.state = StateIdle
	if r.Err != nil {
		c.log.WithError(r.Err).Warnf("capture ended after %d packets", r.Stats.Packets)
		return
	}
	c.log.Infof("capture complete, %d packets", r.Stats.Packets)
}

// waitComplete blocks until the hardware reports completion, the packet
// target is reached, or the wait is cancelled. A zero target disables the
// count check.
func (c *Controller) waitComplete(ctx context.Context, target uint64) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		complete, err := c.captureFinished(target)
		if err != nil {
			return err
		}
		if complete {
			return nil
		}
		select {
		case <-ctx.Done():
			return core.ErrCancelled
		case <-ticker.C:
		}
	}
}

func (c *Controller) captureFinished(target uint64) (bool, error) {
	flag, err := c.regs.ReadRegister(fpga.RegRxComplete)
	if err != nil {
		return false, err
	}
	if flag != 0 {
		return true, nil
	}
	if target == 0 {
		return false, nil
	}
	count, err := c.RxPacketCount()
	if err != nil {
		return false, err
	}
	return count >= target, nil
}

// CancelReceive signals the capture-wait worker to stop and joins it. The
// worker still drains whatever was captured before it exits.
func (c *Controller) CancelReceive() {
	c.mu.Lock()
	cancel := c.capCancel
	done := c.capDone
	c.capCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// WaitReceive blocks until the current capture session's worker finishes
// and returns its result.
func (c *Controller) WaitReceive(ctx context.Context) (CaptureResult, error) {
	c.mu.Lock()
	done := c.capDone
	c.mu.Unlock()
	if done == nil {
		return CaptureResult{}, fmt.Errorf("no capture in progress")
	}
	select {
	case <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return CaptureResult{}, core.ErrCompletionTimeout
		}
		return CaptureResult{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capResult, nil
}

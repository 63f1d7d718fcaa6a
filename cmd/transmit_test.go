package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/hbm"
	"firestige.xyz/strix/internal/session"
)

func newTestDevice(t *testing.T) (*fpga.Simulator, *device) {
	t.Helper()
	caps := []int64{8192}
	sim := fpga.NewSimulator(caps)
	bm, err := hbm.NewBufferMap(sim, caps)
	require.NoError(t, err)
	return sim, &device{regs: sim, bm: bm, ctl: session.NewController(sim, bm)}
}

// The settle-wait returns once the sent counter is non-zero and has
// stopped advancing.
func TestWaitTransmitReturnsWhenCounterSettles(t *testing.T) {
	sim, dev := newTestDevice(t)
	require.NoError(t, sim.WriteRegister(fpga.RegTxPacketCountLo, 9))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	began := time.Now()
	waitTransmit(ctx, dev, 2*time.Millisecond)
	assert.Less(t, time.Since(began), 500*time.Millisecond,
		"wait should settle on the stable counter, not run out the context")
}

// Cancellation stops the wait even while the counter sits at zero.
func TestWaitTransmitStopsOnCancel(t *testing.T) {
	_, dev := newTestDevice(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		waitTransmit(ctx, dev, 2*time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitTransmit did not stop on cancellation")
	}
}

package session

// Status is a point-in-time snapshot of the controller for display.
type Status struct {
	State           State
	LoadedStream    string
	ReadyToTransmit bool
	PacketsSent     uint64
	PacketsReceived uint64
	RxTarget        uint64
}

// Status gathers a snapshot. Counter read errors degrade to zero values;
// a status poll must not abort an operation in flight.
func (c *Controller) Status() Status {
	sent, err := c.TxPacketCount()
	if err != nil {
		c.log.WithError(err).Debug("tx packet count unavailable")
	}
	received, err := c.RxPacketCount()
	if err != nil {
		c.log.WithError(err).Debug("rx packet count unavailable")
	}
	ready := c.ReadyToTransmit()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:           c.state,
		LoadedStream:    c.loadedStream,
		ReadyToTransmit: ready,
		PacketsSent:     sent,
		PacketsReceived: received,
		RxTarget:        c.rxTarget,
	}
}

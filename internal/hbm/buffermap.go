// Package hbm places packet records into the card's staging buffers and
// recovers them again: virtual addressing over the physical buffers plus the
// beat-aligned record framing.
package hbm

import (
	"fmt"
	"sort"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/fpga"
)

// BufferMap presents the physical buffers as one contiguous virtual byte
// space. It owns only the derived offset table; the buffer memory belongs
// to the transport.
type BufferMap struct {
	mem fpga.MemoryIO

	// offsets holds the virtual start address of each buffer plus one
	// final entry for the end of the last buffer (n+1 entries).
	offsets []int64
}

func NewBufferMap(mem fpga.MemoryIO, capacities []int64) (*BufferMap, error) {
	if len(capacities) == 0 {
		return nil, fmt.Errorf("buffer map needs at least one buffer")
	}
	offsets := make([]int64, len(capacities)+1)
	for i, c := range capacities {
		if c <= 0 {
			return nil, fmt.Errorf("buffer %d has non-positive capacity %d", i+1, c)
		}
		offsets[i+1] = offsets[i] + c
	}
	return &BufferMap{mem: mem, offsets: offsets}, nil
}

// Capacity is the total byte capacity across all buffers.
func (m *BufferMap) Capacity() int64 {
	return m.offsets[len(m.offsets)-1]
}

// NumBuffers is the number of physical buffers.
func (m *BufferMap) NumBuffers() int {
	return len(m.offsets) - 1
}

// BufferCapacity is the capacity of one physical buffer (1-based).
func (m *BufferMap) BufferCapacity(buffer int) int64 {
	return m.offsets[buffer] - m.offsets[buffer-1]
}

// locate returns the 1-based buffer containing the virtual address: the
// first offset entry strictly greater than the address.
func (m *BufferMap) locate(address int64) int {
	return sort.Search(len(m.offsets), func(i int) bool {
		return m.offsets[i] > address
	})
}

// segment is one physical span of a resolved virtual range.
type segment struct {
	buffer int
	offset int64
	length int64
}

// resolve splits [address, address+length) at buffer boundaries. Ranges
// that would run past the end of the last buffer are rejected outright,
// never truncated.
func (m *BufferMap) resolve(address, length int64) ([]segment, error) {
	if address < 0 || length < 0 || address+length > m.Capacity() {
		return nil, fmt.Errorf("%w: cannot fit %d bytes at virtual address %d, buffers end at %d",
			core.ErrAddressOutOfRange, length, address, m.Capacity())
	}
	var segs []segment
	for length > 0 {
		buffer := m.locate(address)
		offset := address - m.offsets[buffer-1]
		room := m.offsets[buffer] - address
		n := length
		if n > room {
			n = room
		}
		segs = append(segs, segment{buffer: buffer, offset: offset, length: n})
		address += n
		length -= n
	}
	return segs, nil
}

// Write stores data at a virtual address, splitting across buffers as
// needed.
func (m *BufferMap) Write(data []byte, address int64) error {
	segs, err := m.resolve(address, int64(len(data)))
	if err != nil {
		return err
	}
	consumed := int64(0)
	for _, s := range segs {
		if err := m.mem.WriteMemory(s.buffer, data[consumed:consumed+s.length], s.offset); err != nil {
			return fmt.Errorf("write buffer %d at %d: %w", s.buffer, s.offset, err)
		}
		consumed += s.length
	}
	return nil
}

// Read fetches length bytes from a virtual address.
func (m *BufferMap) Read(address, length int64) ([]byte, error) {
	segs, err := m.resolve(address, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, length)
	for _, s := range segs {
		part, err := m.mem.ReadMemory(s.buffer, s.length, s.offset)
		if err != nil {
			return nil, fmt.Errorf("read buffer %d at %d: %w", s.buffer, s.offset, err)
		}
		out = append(out, part...)
	}
	return out, nil
}

// ReadBuffer reads from the start of one physical buffer, for consumers
// that walk buffers individually.
func (m *BufferMap) ReadBuffer(buffer int, length int64) ([]byte, error) {
	if buffer < 1 || buffer > m.NumBuffers() {
		return nil, fmt.Errorf("%w: no buffer %d", core.ErrAddressOutOfRange, buffer)
	}
	if length > m.BufferCapacity(buffer) {
		return nil, fmt.Errorf("%w: %d bytes from buffer %d of %d",
			core.ErrAddressOutOfRange, length, buffer, m.BufferCapacity(buffer))
	}
	return m.mem.ReadMemory(buffer, length, 0)
}

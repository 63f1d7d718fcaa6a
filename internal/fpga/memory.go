package fpga

import "fmt"

// MemoryIO accesses the physical staging buffers. Buffers are 1-based and
// offsets are relative to the start of the addressed buffer.
type MemoryIO interface {
	WriteMemory(buffer int, data []byte, offset int64) error
	ReadMemory(buffer int, length int64, offset int64) ([]byte, error)
}

// ChunkedMemory splits large reads into fixed-size pages. Some platform
// drivers fail on reads of 2 GiB and above, so the session layer wraps its
// transport in this with a conservative page size.
type ChunkedMemory struct {
	MemoryIO
	ChunkSize int64
}

// DefaultReadChunk is 1 GiB, known safe on all supported hosts.
const DefaultReadChunk = int64(1) << 30

func NewChunkedMemory(mem MemoryIO, chunkSize int64) *ChunkedMemory {
	if chunkSize <= 0 {
		chunkSize = DefaultReadChunk
	}
	return &ChunkedMemory{MemoryIO: mem, ChunkSize: chunkSize}
}

func (c *ChunkedMemory) ReadMemory(buffer int, length int64, offset int64) ([]byte, error) {
	if length <= c.ChunkSize {
		return c.MemoryIO.ReadMemory(buffer, length, offset)
	}
	out := make([]byte, 0, length)
	for start := int64(0); start < length; start += c.ChunkSize {
		n := c.ChunkSize
		if start+n > length {
			n = length - start
		}
		page, err := c.MemoryIO.ReadMemory(buffer, n, offset+start)
		if err != nil {
			return nil, fmt.Errorf("chunked read at %d+%d: %w", offset, start, err)
		}
		out = append(out, page...)
	}
	return out, nil
}

package relfile

import (
	"fmt"

	"github.com/pganalyze/pgbloat/page"
)

// Memory is a relation backed by in-memory block images. It counts held
// buffers so callers can check the acquisition discipline.
type Memory struct {
	name    string
	blocks  [][]byte
	held    int
	maxHeld int
	reads   int
	closes  int
}

func NewMemory(name string, blocks ...[]byte) *Memory {
	return &Memory{name: name, blocks: blocks}
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) NumBlocks() page.BlockNumber {
	return page.BlockNumber(len(m.blocks))
}

func (m *Memory) ReadBuffer(blkno page.BlockNumber) (Buffer, error) {
	if int(blkno) >= len(m.blocks) {
		return nil, fmt.Errorf("block %d out of range for relation %s (%d blocks)", blkno, m.name, len(m.blocks))
	}
	p, err := page.New(m.blocks[blkno])
	if err != nil {
		return nil, err
	}
	m.held++
	m.reads++
	if m.held > m.maxHeld {
		m.maxHeld = m.held
	}
	return &memoryBuffer{mem: m, page: p}, nil
}

func (m *Memory) Close() error {
	m.closes++
	return nil
}

// Held is the number of buffers currently acquired and not released
func (m *Memory) Held() int {
	return m.held
}

// MaxHeld is the largest number of buffers held at the same time
func (m *Memory) MaxHeld() int {
	return m.maxHeld
}

// Reads is the number of ReadBuffer calls that succeeded
func (m *Memory) Reads() int {
	return m.reads
}

// Closes is the number of times Close was called
func (m *Memory) Closes() int {
	return m.closes
}

type memoryBuffer struct {
	mem  *Memory
	page *page.Page
}

func (b *memoryBuffer) Page() *page.Page {
	return b.page
}

func (b *memoryBuffer) Release() {
	if b.page == nil {
		return
	}
	b.page = nil
	b.mem.held--
}

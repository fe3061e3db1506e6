// Package memsys implements the fixed-capacity segment and block pools used
// by a Session (sender side) or SenderNode (receiver side): C1 in the
// design. Modeled on the teacher's memsys.MMSA / transport's use of it
// (transport/pdu.go, transport/api.go reference `*memsys.MMSA` for
// PDU/header buffering) — but narrowed to the two fixed-size allocation
// classes NORM actually needs: segment-sized payload buffers and block
// metadata slots. Unlike a general slab allocator, overrun is never fatal:
// callers get a nil allocation and treat it as a local flow-control event.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package memsys

import (
	"sync"

	"github.com/USNavalResearchLaboratory/normcore/cmn/xatomic"
)

// SegmentPool hands out fixed-size byte buffers. Freed segments are pushed
// back onto a LIFO free list so the most recently used buffer (hot in
// cache) is the next one handed out.
type SegmentPool struct {
	mu       sync.Mutex
	free     [][]byte
	segSize  int
	capacity int
	inUse    int
	peak     int
	overruns xatomic.Int64
}

func NewSegmentPool(segSize, capacity int) *SegmentPool {
	return &SegmentPool{segSize: segSize, capacity: capacity, free: make([][]byte, 0, capacity)}
}

// Get returns a segSize buffer, or nil if the pool is exhausted. A nil
// return is a signal to the caller (Block.WriteSegment on the sender path,
// Object.WriteSegment on the receiver path) to treat the symbol as
// momentarily unavailable, never as a fatal error.
func (p *SegmentPool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse++
		if p.inUse > p.peak {
			p.peak = p.inUse
		}
		return b[:p.segSize]
	}
	if p.inUse >= p.capacity {
		p.overruns.Inc()
		return nil
	}
	p.inUse++
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	return make([]byte, p.segSize)
}

func (p *SegmentPool) Put(b []byte) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, b)
	p.inUse--
}

type PoolStats struct {
	InUse, Peak, Capacity int
	Overruns              int64
}

func (p *SegmentPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{InUse: p.inUse, Peak: p.peak, Capacity: p.capacity, Overruns: p.overruns.Load()}
}

// BlockPool hands out pre-sized symbol-table slices (one []byte slot per
// potential symbol in a block); the pool owns only the slice headers, not
// the segment storage itself (that comes from a SegmentPool per-symbol).
type BlockPool struct {
	mu       sync.Mutex
	free     [][][]byte
	symbols  int // numData + numParity, max across the session's FTI
	capacity int
	inUse    int
	peak     int
	overruns xatomic.Int64
}

func NewBlockPool(symbols, capacity int) *BlockPool {
	return &BlockPool{symbols: symbols, capacity: capacity, free: make([][][]byte, 0, capacity)}
}

func (p *BlockPool) Get() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		t := p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse++
		if p.inUse > p.peak {
			p.peak = p.inUse
		}
		for i := range t {
			t[i] = nil
		}
		return t
	}
	if p.inUse >= p.capacity {
		p.overruns.Inc()
		return nil
	}
	p.inUse++
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	return make([][]byte, p.symbols)
}

func (p *BlockPool) Put(t [][]byte) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, t)
	p.inUse--
}

func (p *BlockPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{InUse: p.inUse, Peak: p.peak, Capacity: p.capacity, Overruns: p.overruns.Load()}
}

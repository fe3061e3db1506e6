// Package block implements the FEC source-block state machine: the unit
// of reliability over which repair (NACK-driven retransmission or parity
// generation) operates.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package block

import (
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/USNavalResearchLaboratory/normcore/cmn/debug"
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/pkg/errors"
)

// Block is one FEC source block's symbol table plus the bookkeeping the
// sender and receiver sides each need to drive repair. When the owning
// Object has a memsys.BlockPool configured, Blocks come from NewFromPool
// and return their table via Release on eviction; New remains available
// for pool-less use (tests, pool exhaustion fallback).
type Block struct {
	id wire.BlockId

	numData   int
	numParity int

	symbols  [][]byte // len == numData+numParity; nil where absent
	pending  []bool   // symbols still owed to the receiver (tx) / missing (rx)

	erasureCount int // source symbols not yet written (rx: missing; tx: not yet materialized)
	parityCount  int // number of parity symbols currently held/sent
	parityOffset int // next not-yet-planned parity symbol index

	segSizeMax int // largest symbol length seen, for short final-segment handling

	lastNackTime time.Time
	nackArmed    bool

	pool      *memsys.BlockPool // non-nil when symbols was sliced from a pool table
	poolTable [][]byte          // the full-width table to return to pool on Release
}

// New allocates a Block with its own symbol table, bypassing any pool.
// Used by tests and by ensureBlock's fallback when no BlockPool is
// configured or the pool is momentarily exhausted.
func New(numData, numParity int) *Block {
	return &Block{
		numData:   numData,
		numParity: numParity,
		symbols:   make([][]byte, numData+numParity),
		pending:   make([]bool, numData+numParity),
	}
}

// NewFromPool allocates a Block backed by a pool-owned symbol table,
// trimmed to numData+numParity slots. Returns nil if the pool is
// exhausted; the caller (object.ensureBlock) falls back to New rather
// than treating this as fatal.
func NewFromPool(pool *memsys.BlockPool, numData, numParity int) *Block {
	t := pool.Get()
	if t == nil {
		return nil
	}
	n := numData + numParity
	return &Block{
		numData:   numData,
		numParity: numParity,
		symbols:   t[:n],
		pending:   make([]bool, n),
		pool:      pool,
		poolTable: t,
	}
}

// Release returns the block's pool-owned resources: each held symbol
// back to segPool (if non-nil) and the symbol table itself back to the
// BlockPool it came from (if pool-backed). Safe to call on a
// non-pool-backed Block (a no-op for the table, still frees segments).
func (b *Block) Release(segPool *memsys.SegmentPool) {
	if segPool != nil {
		for i, s := range b.symbols {
			if s != nil {
				segPool.Put(s)
				b.symbols[i] = nil
			}
		}
	}
	if b.pool != nil {
		b.pool.Put(b.poolTable)
		b.pool = nil
		b.poolTable = nil
	}
}

func (b *Block) Id() wire.BlockId { return b.id }

// Reset clears all symbol/pending state so the Block can be returned to
// its pool and reused for an unrelated position.
func (b *Block) Reset() {
	for i := range b.symbols {
		b.symbols[i] = nil
		b.pending[i] = false
	}
	b.erasureCount, b.parityCount, b.parityOffset = 0, 0, 0
	b.segSizeMax = 0
	b.nackArmed = false
}

// TxInit arms a block for transmission: the first numData+autoParity
// symbols are marked pending (spec §4.3).
func (b *Block) TxInit(id wire.BlockId, autoParity int) {
	b.Reset()
	b.id = id
	b.erasureCount = b.numData
	n := b.numData + autoParity
	if n > len(b.pending) {
		n = len(b.pending)
	}
	for i := 0; i < n; i++ {
		b.pending[i] = true
	}
	b.parityOffset = autoParity
}

// TxReset re-arms a previously emitted block for retransmission of the
// given symbol subset (e.g. after a NACK names specific symbols).
func (b *Block) TxReset(symbolIds []wire.SymbolId) {
	for _, sid := range symbolIds {
		if int(sid) < len(b.pending) {
			b.pending[sid] = true
		}
	}
}

// TxUpdate folds a NACK's requested range into the pending set and plans
// up to erasureCount additional parity symbols, capped by the symbols not
// yet allocated (spec §4.3).
func (b *Block) TxUpdate(first, last wire.SymbolId, erasureCount int) {
	for s := first; s <= last; s++ {
		if int(s) < len(b.pending) {
			b.pending[s] = true
		}
	}
	room := b.numParity - b.parityOffset
	if erasureCount > room {
		erasureCount = room
	}
	for i := 0; i < erasureCount; i++ {
		idx := b.numData + b.parityOffset
		b.pending[idx] = true
		b.parityOffset++
	}
}

// RxInit arms receive-side bookkeeping: every source symbol is presumed
// missing until WriteSegment proves otherwise.
func (b *Block) RxInit(id wire.BlockId) {
	b.Reset()
	b.id = id
	b.erasureCount = b.numData
	for i := 0; i < b.numData; i++ {
		b.pending[i] = true
	}
}

// WriteSegment stores a received (or locally generated, sender-side)
// symbol and updates the erasure/parity bookkeeping (spec §4.3).
func (b *Block) WriteSegment(symbolId wire.SymbolId, buf []byte) {
	idx := int(symbolId)
	debug.Assert(idx >= 0 && idx < len(b.symbols))
	if b.symbols[idx] == nil {
		if idx < b.numData {
			b.erasureCount--
		} else {
			b.parityCount++
		}
	}
	b.symbols[idx] = buf
	b.pending[idx] = false
	if len(buf) > b.segSizeMax {
		b.segSizeMax = len(buf)
	}
}

// Symbol returns the stored symbol at idx, or nil if absent.
func (b *Block) Symbol(idx int) []byte { return b.symbols[idx] }

// HaveAllSource reports whether every source symbol has been written.
func (b *Block) HaveAllSource() bool { return b.erasureCount == 0 }

// IsRepairPending reports whether any source symbol is absent and the
// erasure count exceeds the held parity count — i.e. decode is not yet
// possible and repair (NACK or parity wait) is still needed.
func (b *Block) IsRepairPending() bool {
	return b.erasureCount > 0 && b.erasureCount > b.parityCount
}

// ParityReadiness is the count of source symbols accumulated so far,
// saturating at numData; once it reaches numData, parity can be computed
// on demand without blocking (spec §4.3).
func (b *Block) ParityReadiness() int {
	return b.numData - b.erasureCount
}

// Decode reconstructs any missing symbols via codec, given enough
// received symbols (erasureCount <= numParity present). Returns false if
// decode is not yet possible.
func (b *Block) Decode(codec fec.Codec) (bool, error) {
	if b.erasureCount == 0 {
		return true, nil
	}
	if b.erasureCount > b.parityCount {
		return false, nil
	}
	shards := make([][]byte, b.numData+b.numParity)
	for i := range shards {
		if b.symbols[i] != nil {
			shards[i] = b.symbols[i]
		}
	}
	if err := codec.Reconstruct(shards); err != nil {
		// erasureCount <= parityCount should guarantee reconstruction; a
		// codec failure here means the invariant was violated upstream.
		return false, &cos.ErrUnrecoverable{BlockID: int64(b.id)}
	}
	for i := 0; i < b.numData; i++ {
		if b.symbols[i] == nil {
			b.symbols[i] = shards[i]
			b.erasureCount--
		}
	}
	return b.erasureCount == 0, nil
}

// ComputeParity (re)encodes every parity symbol for a source-complete
// block via codec and returns the one at idx, generating repair answers
// for an ERASURES-form NACK on demand instead of caching parity the
// sender never ends up needing (spec §4.3).
func (b *Block) ComputeParity(idx int, codec fec.Codec) ([]byte, error) {
	if codec == nil {
		return nil, errors.New("block: no codec configured for parity generation")
	}
	size := b.segSizeMax
	if size == 0 {
		return nil, errors.New("block: no source symbols present")
	}
	shards := make([][]byte, b.numData+b.numParity)
	for i := 0; i < b.numData; i++ {
		shards[i] = b.symbols[i]
	}
	for i := b.numData; i < len(shards); i++ {
		shards[i] = make([]byte, size)
	}
	if err := codec.Encode(shards); err != nil {
		return nil, err
	}
	for i := b.numData; i < len(shards); i++ {
		b.symbols[i] = shards[i]
	}
	if idx < 0 || idx >= len(shards) {
		return nil, errors.Errorf("block: parity index %d out of range", idx)
	}
	return shards[idx], nil
}

// NoteNack applies the spec §4.3 tie-break: a NACK arriving while one is
// already "fresh" (within lastNackTime's window) only extends the pending
// set and resets the age timer; it does not restart the repair pass. The
// caller passes now and the session's configured window; the bool return
// tells the caller whether this NACK should trigger a *new* repair pass.
func (b *Block) NoteNack(now time.Time, window time.Duration) (triggersNewPass bool) {
	fresh := b.nackArmed && now.Sub(b.lastNackTime) < window
	b.lastNackTime = now
	b.nackArmed = true
	return !fresh
}

// NackAge reports how long it has been since the last NACK affecting this
// block, used by eviction policy (spec §4.3: "a block whose lastNackTime
// age exceeds the sender's flow-control delay is eligible for eviction").
func (b *Block) NackAge(now time.Time) time.Duration {
	if b.lastNackTime.IsZero() {
		return 0
	}
	return now.Sub(b.lastNackTime)
}

// EvictionEligible reports whether the block's NACK age exceeds delay.
func (b *Block) EvictionEligible(now time.Time, delay time.Duration) bool {
	return b.NackAge(now) > delay
}

// Package object implements the per-object state machine that sits above
// blocks: segmentation into FEC blocks, sender-side scan-and-fill, and
// receiver-side reassembly and repair-request bookkeeping.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package object

import (
	"github.com/USNavalResearchLaboratory/normcore/block"
	"github.com/USNavalResearchLaboratory/normcore/cmn/debug"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// State is the object lifecycle (spec §4.4).
type State int

const (
	StateNew State = iota
	StatePending
	StateComplete
	StateAborted
)

// NackingMode controls how much repair a receiver solicits for an object
// (spec §4.4/§6).
type NackingMode int

const (
	NackNone NackingMode = iota
	NackInfoOnly
	NackNormal
)

// RepairBoundary selects whether NACKs are scoped per-block or coalesced
// across the whole object (spec §4.4/§6).
type RepairBoundary int

const (
	BoundaryBlock RepairBoundary = iota
	BoundaryObject
)

// EvictionPolicy picks the block a buffer-pressured receiver steals when
// every buffered block still has repair pending: the newest under
// EvictNewest, the oldest under EvictOldest (spec §4.4). A block with no
// repair pending is always stolen first, whatever the policy.
type EvictionPolicy int

const (
	EvictOldest EvictionPolicy = iota
	EvictNewest
)

// PayloadKind tags which concrete payload an Object wraps, replacing the
// FileObject/DataObject/StreamObject inheritance hierarchy the original
// implementation used (spec §9 DESIGN NOTES: "replace with a tagged
// variant").
type PayloadKind int

const (
	PayloadFile PayloadKind = iota
	PayloadData
	PayloadStream
)

// FilePayload is the application-delegated file abstraction (spec §6):
// the core never touches a filesystem directly.
type FilePayload struct {
	File FileIO
}

// FileIO is the minimal file interface spec §6 requires of an external
// binding: "Open, Read, Write, Seek, Pad, Rename, Unlink, GetSize,
// GetType."
type FileIO interface {
	Open(path string, write bool) error
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Pad(size int64) error
	Rename(newPath string) error
	Unlink() error
	GetSize() (int64, error)
	GetType() string
	Close() error
}

// DataPayload is an in-memory object (spec §4.4's "Data" variant).
type DataPayload struct {
	Buf   []byte
	Owned bool
}

// StreamPayload marks the object as stream-backed; the stream package
// layers circular-buffer semantics on top using the same block set.
type StreamPayload struct {
	BufferMax int // in FEC blocks, >= 2 (spec §4.7)
}

// Payload holds exactly one of File/Data/Stream, selected by Kind.
type Payload struct {
	Kind   PayloadKind
	File   *FilePayload
	Data   *DataPayload
	Stream *StreamPayload
}

// Object is the common envelope spec §9 calls "Common" in its tagged
// variant redesign: object-id, size, FEC shape, block buffer, and
// reassembly/repair bookkeeping, plus one Payload.
type Object struct {
	Id   wire.ObjectId
	Size wire.ObjectSize
	FTI  wire.FTI

	State State

	Payload Payload

	segmentSize int
	numData     int
	numParity   int
	numBlocks   int64 // ceil(size / (segmentSize*numData))
	finalBlockId wire.BlockId
	finalSegmentSize int // bytes actually valid in the final block's last segment

	blockIdMask uint32

	blocks map[wire.BlockId]*block.Block
	// pendingMask marks blocks not yet fully sent (tx) / not yet fully
	// received (rx); true = still needs attention.
	pendingMask map[wire.BlockId]bool

	pendingInfo bool // true until INFO has been sent/received

	nackingMode    NackingMode
	repairBoundary RepairBoundary
	evictPolicy    EvictionPolicy

	maxBufferedBlocks int // buffer capacity in blocks; 0 = unbounded

	segPool   *memsys.SegmentPool // optional; set via SetPools
	blockPool *memsys.BlockPool   // optional; set via SetPools

	onSegOverrun   func() // called when segPool.Get() returns nil
	onBlockOverrun func() // called when blockPool.Get() returns nil

	// infoContent is the receiver's copy of the NORM_INFO payload, or the
	// sender's source content for the synthetic INFO symbol (spec §4.2).
	infoContent []byte

	// streamWriteSeq is the next (blockId,symbolId) coordinate a
	// STREAM-backed object's Writer sink will fill, walked sequentially
	// rather than by NextSenderMsg's pending-mask scan (spec §4.7: the
	// circular buffer is its own flow control).
	streamWriteSeq int64
}

// SetPools wires the Session-owned (sender) or SenderNode-owned
// (receiver) segment/block pools into this object's allocation path
// (spec §5: pools are owned one level up, not per-object). Either pool
// may be nil to leave that allocation class unpooled. onSegOverrun and
// onBlockOverrun, if non-nil, are invoked on pool exhaustion so the
// caller can account it as a stats counter rather than a fatal error.
func (o *Object) SetPools(segPool *memsys.SegmentPool, blockPool *memsys.BlockPool, onSegOverrun, onBlockOverrun func()) {
	o.segPool, o.blockPool = segPool, blockPool
	o.onSegOverrun, o.onBlockOverrun = onSegOverrun, onBlockOverrun
}

// Open allocates an Object sized to hold size bytes under the given FTI
// (spec §4.4): "allocate bitmasks sized to ceil(size/(segmentSize*numData))
// blocks."
func Open(id wire.ObjectId, size wire.ObjectSize, fti wire.FTI, maxBufferedBlocks int) *Object {
	o := &Object{
		Id:                id,
		Size:              size,
		FTI:               fti,
		State:             StateNew,
		segmentSize:       int(fti.SegmentSize),
		numData:           int(fti.NumData),
		numParity:         int(fti.NumParity),
		blocks:            make(map[wire.BlockId]*block.Block),
		pendingMask:       make(map[wire.BlockId]bool),
		pendingInfo:       true,
		maxBufferedBlocks: maxBufferedBlocks,
		nackingMode:       NackNormal,
		repairBoundary:    BoundaryBlock,
	}
	o.blockIdMask = wire.BlockIdMask(fti.FecId, fti.FecFieldSize)

	blockPayload := int64(o.segmentSize) * int64(o.numData)
	if blockPayload <= 0 {
		o.numBlocks = 0
		return o
	}
	sz := int64(size)
	o.numBlocks = (sz + blockPayload - 1) / blockPayload
	if o.numBlocks == 0 && sz == 0 {
		// objectSize=0 is an INFO-only object (spec §8 boundary case).
		o.State = StatePending
		return o
	}
	o.finalBlockId = wire.BlockId(o.numBlocks - 1)
	rem := sz - (o.numBlocks-1)*blockPayload
	o.finalSegmentSize = int(rem % int64(o.segmentSize))
	if o.finalSegmentSize == 0 {
		o.finalSegmentSize = o.segmentSize
	}
	for i := int64(0); i < o.numBlocks; i++ {
		o.pendingMask[wire.BlockId(i)] = true
	}
	o.State = StatePending
	return o
}

// NumBlocks reports the block count this object segments into.
func (o *Object) NumBlocks() int64 { return o.numBlocks }

// SegmentPayloadMax reports the FEC segment size this object was opened
// with (the UDP DATA payload capacity before any stream framing, spec §6).
func (o *Object) SegmentPayloadMax() int { return o.segmentSize }

// BlockNumData reports the object's FEC scheme source-symbol count per
// block.
func (o *Object) BlockNumData() int { return o.numData }

func (o *Object) SetNackingMode(m NackingMode)       { o.nackingMode = m }
func (o *Object) SetRepairBoundary(b RepairBoundary) { o.repairBoundary = b }
func (o *Object) SetEvictionPolicy(p EvictionPolicy) { o.evictPolicy = p }

// Close releases every buffered block's pool-owned resources (symbol
// table and segments) back to the configured pools. Callers invoke this
// once an object reaches StateComplete/StateAborted and is about to be
// dropped from the tx cache / receiver object table.
func (o *Object) Close() {
	for id, b := range o.blocks {
		b.Release(o.segPool)
		delete(o.blocks, id)
	}
}

func (o *Object) blockNumData(id wire.BlockId) int {
	if id == o.finalBlockId {
		rem := int64(o.Size) - int64(o.finalBlockId)*int64(o.segmentSize)*int64(o.numData)
		n := int((rem + int64(o.segmentSize) - 1) / int64(o.segmentSize))
		if n < 1 {
			n = 1
		}
		return n
	}
	return o.numData
}

// ensureBlock returns the Block for id, allocating (and evicting a block
// per evictPolicy if the buffer is full) as needed. isRx selects whether a
// freshly allocated block is armed via RxInit (receiver, erasureCount
// starts at numData) or TxInit with zero autoParity (sender; additional
// parity is planned later via TxUpdate on NACK).
func (o *Object) ensureBlock(id wire.BlockId, isRx bool) *block.Block {
	if b, ok := o.blocks[id]; ok {
		return b
	}
	if o.maxBufferedBlocks > 0 && len(o.blocks) >= o.maxBufferedBlocks {
		if victim, ok := o.stealBlock(); ok {
			if vb, ok := o.blocks[victim]; ok {
				vb.Release(o.segPool)
			}
			delete(o.blocks, victim)
		}
	}
	var b *block.Block
	if o.blockPool != nil {
		b = block.NewFromPool(o.blockPool, o.blockNumData(id), o.numParity)
		if b == nil && o.onBlockOverrun != nil {
			o.onBlockOverrun()
		}
	}
	if b == nil {
		b = block.New(o.blockNumData(id), o.numParity)
	}
	if isRx {
		b.RxInit(id)
	} else {
		b.TxInit(id, 0)
	}
	o.blocks[id] = b
	debug.Assert(o.blocks[id] != nil)
	return b
}

// Resize re-derives block bookkeeping once the true object size becomes
// known from a source other than the original Open call (spec §4.2:
// NORM_INFO carries no object size; the receiver only learns it from the
// first DATA segment's FlagInfo-gated objectSize field). A no-op once any
// block has been buffered, since reassembly state would no longer line
// up with a changed block count.
func (o *Object) Resize(size wire.ObjectSize) bool {
	if len(o.blocks) > 0 {
		return o.Size == size
	}
	o.Size = size
	blockPayload := int64(o.segmentSize) * int64(o.numData)
	if blockPayload <= 0 {
		return true
	}
	sz := int64(size)
	o.numBlocks = (sz + blockPayload - 1) / blockPayload
	if o.numBlocks == 0 {
		return true
	}
	o.finalBlockId = wire.BlockId(o.numBlocks - 1)
	rem := sz - (o.numBlocks-1)*blockPayload
	o.finalSegmentSize = int(rem % int64(o.segmentSize))
	if o.finalSegmentSize == 0 {
		o.finalSegmentSize = o.segmentSize
	}
	o.pendingMask = make(map[wire.BlockId]bool, o.numBlocks)
	for i := int64(0); i < o.numBlocks; i++ {
		o.pendingMask[wire.BlockId(i)] = true
	}
	if o.State == StateNew {
		o.State = StatePending
	}
	return true
}

// Watermark reports the (blockId, symbolId) coordinate of this object's
// final source symbol — the position a CMD(FLUSH)/CMD(ACK_REQ) watermark
// check or a stream writer's armWatermark call needs (spec §4.7).
func (o *Object) Watermark() (wire.BlockId, wire.SymbolId) {
	if o.numBlocks == 0 {
		return 0, 0
	}
	return o.finalBlockId, wire.SymbolId(o.blockNumData(o.finalBlockId) - 1)
}

// AppendStreamData materializes one already-framed STREAM segment at the
// next sequential (blockId, symbolId) coordinate and returns it, so the
// caller can transmit the segment directly rather than waiting for
// NextSenderMsg's demand-pull scan to reach it (spec §4.7: the stream
// writer's own circular buffer is the flow control, not the tx-cache
// pending-mask walk).
func (o *Object) AppendStreamData(framed []byte) (wire.BlockId, wire.SymbolId) {
	nd := o.numData
	idx := o.streamWriteSeq
	o.streamWriteSeq++
	blockId := wire.BlockId(idx / int64(nd))
	symbolId := wire.SymbolId(idx % int64(nd))
	b := o.ensureBlock(blockId, false)
	b.WriteSegment(symbolId, framed)
	return blockId, symbolId
}

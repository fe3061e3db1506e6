package object

import (
	"math/rand"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// WriteSegment is the receiver path: store a received symbol, creating
// the block (possibly evicting per policy) if absent, and reclaim parity
// slots to the pool once decode completes (spec §4.4).
func (o *Object) WriteSegment(blockId wire.BlockId, symbolId wire.SymbolId, buf []byte, codec fec.Codec) (completed bool, err error) {
	b := o.ensureBlock(blockId, true)
	stored := buf
	if o.segPool != nil {
		if pbuf := o.segPool.Get(); pbuf != nil {
			n := copy(pbuf, buf)
			stored = pbuf[:n]
		} else if o.onSegOverrun != nil {
			o.onSegOverrun()
		}
	}
	b.WriteSegment(symbolId, stored)
	if !b.IsRepairPending() {
		done, derr := b.Decode(codec)
		if derr != nil {
			return false, derr
		}
		if done {
			o.pendingMask[blockId] = false
			if o.allBlocksComplete() {
				o.State = StateComplete
			}
		}
		return done, nil
	}
	return false, nil
}

func (o *Object) allBlocksComplete() bool {
	for _, pending := range o.pendingMask {
		if pending {
			return false
		}
	}
	return o.State != StateNew
}

// RepairLevel names the granularity of a receiver repair check (spec §4.4).
type RepairLevel int

const (
	RepairLevelSegment RepairLevel = iota
	RepairLevelBlock
	RepairLevelObject
)

// ReceiverRepairCheck computes the pending-repair set up through
// (blockId, symbolId) and, if nothing is already armed, returns a backoff
// delay in [0, 2*GRTT*groupSizeFactor) per spec §4.4. timerActive and
// holdoffPhase let the caller (SenderNode) avoid re-arming a timer that's
// already running or suppress during holdoff.
func (o *Object) ReceiverRepairCheck(
	level RepairLevel, blockId wire.BlockId, symbolId wire.SymbolId,
	timerActive, holdoffPhase bool, grtt time.Duration, groupSizeFactor float64,
) (needsRepair bool, backoff time.Duration) {
	if o.nackingMode == NackNone {
		return false, 0
	}
	if timerActive || holdoffPhase {
		return o.hasAnyPending(), 0
	}
	if !o.hasAnyPending() {
		return false, 0
	}
	max := time.Duration(float64(grtt) * 2 * groupSizeFactor)
	if max <= 0 {
		return true, 0
	}
	return true, time.Duration(rand.Int63n(int64(max)))
}

func (o *Object) hasAnyPending() bool {
	for _, pending := range o.pendingMask {
		if pending {
			return true
		}
	}
	return false
}

// CompleteThrough reports whether local reception is complete up through
// (blockId, symbolId) inclusive — every earlier block fully decoded and,
// for blockId itself, every source symbol up to symbolId present (spec
// §4.5's watermark-ACK check: "if local reception is complete up to
// (objectId,blockId,symbolId), respond with ACK(FLUSH)").
func (o *Object) CompleteThrough(blockId wire.BlockId, symbolId wire.SymbolId) bool {
	for id, pending := range o.pendingMask {
		switch id.Compare(blockId, o.blockIdMask) {
		case 1: // block beyond the watermark doesn't matter yet
			continue
		case -1:
			if pending {
				return false
			}
		default:
			b, ok := o.blocks[id]
			if !ok {
				return false
			}
			for i := 0; i <= int(symbolId) && i < o.numData; i++ {
				if b.Symbol(i) == nil {
					return false
				}
			}
		}
	}
	return true
}

// HighestBlock reports the greatest block id this object has any record
// of (complete or still pending), the implicit watermark a CMD(ACK_REQ)
// with no explicit coordinate is asking about.
func (o *Object) HighestBlock() (wire.BlockId, bool) {
	var best wire.BlockId
	found := false
	for id := range o.blocks {
		if !found || id.Compare(best, o.blockIdMask) > 0 {
			best, found = id, true
		}
	}
	return best, found
}

// SetInfoContent stores the receiver's copy of a NORM_INFO payload,
// copying buf so the caller's receive buffer can be reused, and clears
// pendingInfo (spec §4.2).
func (o *Object) SetInfoContent(content []byte) {
	buf := make([]byte, len(content))
	copy(buf, content)
	o.infoContent = buf
	o.pendingInfo = false
}

// InfoContent returns the object's INFO payload, nil if none has arrived
// (sender) or been sent (receiver) yet.
func (o *Object) InfoContent() []byte { return o.infoContent }

// AppendRepairRequest serializes the object's outstanding repair needs
// into rr, honoring repairBoundary: BLOCK scope appends one block's runs
// at a time (caller loops, sending a NACK per full rr); OBJECT scope
// keeps appending across blocks within the same rr until it's full (spec
// §4.4, §4.2).
func (o *Object) AppendRepairRequest(rr *wire.RepairRequest) (complete bool) {
	if o.nackingMode == NackNone {
		return true
	}
	for id, pending := range o.pendingMask {
		if !pending {
			continue
		}
		b, ok := o.blocks[id]
		if !ok {
			continue
		}
		if o.nackingMode == NackInfoOnly {
			continue
		}
		if !b.AppendRepairRequest(rr, o.Id) {
			return false
		}
		if o.repairBoundary == BoundaryBlock {
			return true
		}
	}
	return true
}

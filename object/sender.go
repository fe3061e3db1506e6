package object

import (
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// SenderMsg is the outcome of one NextSenderMsg scan: either an INFO to
// send (when pendingInfo and an FTI/info payload exist) or a DATA segment
// naming (blockId, symbolId) and its payload bytes.
type SenderMsg struct {
	IsInfo    bool
	BlockId   wire.BlockId
	SymbolId  wire.SymbolId
	Payload   []byte
	ObjectEnd bool // true when this was the last pending symbol in the object
}

// NextSenderMsg scans pendingMask for the next unit of work (spec §4.4):
// INFO first if pendingInfo, else the first pending block's first pending
// symbol. source supplies symbol payload bytes for (blockId, symbolId)
// pairs not yet materialized in the block buffer (read from the backing
// Payload). Returns false once nothing remains pending.
func (o *Object) NextSenderMsg(source func(blockId wire.BlockId, symbolId wire.SymbolId, numData int) ([]byte, error)) (SenderMsg, bool, error) {
	if o.pendingInfo {
		o.pendingInfo = false
		return SenderMsg{IsInfo: true}, true, nil
	}
	id, ok := o.firstPendingBlock()
	if !ok {
		o.State = StateComplete
		return SenderMsg{}, false, nil
	}
	b := o.ensureBlock(id, false)
	sid, ok := o.firstPendingSymbol(b)
	if !ok {
		delete(o.pendingMask, id)
		return o.NextSenderMsg(source)
	}
	nd := o.blockNumData(id)
	payload, err := source(id, sid, nd)
	if err != nil {
		return SenderMsg{}, false, err
	}
	b.WriteSegment(sid, payload)
	o.markSymbolSent(b, id, sid)
	msg := SenderMsg{BlockId: id, SymbolId: sid, Payload: payload}
	if !o.hasAnyPending() && !o.pendingInfo {
		msg.ObjectEnd = true
	}
	return msg, true, nil
}

func (o *Object) firstPendingBlock() (wire.BlockId, bool) {
	var (
		best  wire.BlockId
		found bool
	)
	for id, pending := range o.pendingMask {
		if !pending {
			continue
		}
		if !found || id.Compare(best, o.blockIdMask) < 0 {
			best, found = id, true
		}
	}
	return best, found
}

// ReadSourceSegment reads the source bytes for (blockId, symbolId) directly
// from the object's backing Payload (spec §4.4: source symbols come from
// the application's data, parity is computed separately via FillParity).
// The final block's last segment, and any segment reading past EOF of a
// Data payload, is zero-padded up to segmentSize.
func (o *Object) ReadSourceSegment(blockId wire.BlockId, symbolId wire.SymbolId) ([]byte, error) {
	segLen := o.segmentSize
	if blockId == o.finalBlockId && int(symbolId) == o.blockNumData(blockId)-1 {
		segLen = o.finalSegmentSize
	}
	off := int64(blockId)*int64(o.segmentSize)*int64(o.numData) + int64(symbolId)*int64(o.segmentSize)

	buf := make([]byte, o.segmentSize)
	switch o.Payload.Kind {
	case PayloadData:
		d := o.Payload.Data
		if off >= int64(len(d.Buf)) {
			return buf[:segLen], nil
		}
		end := off + int64(segLen)
		if end > int64(len(d.Buf)) {
			end = int64(len(d.Buf))
		}
		copy(buf, d.Buf[off:end])
		return buf[:segLen], nil
	case PayloadFile:
		n, err := o.Payload.File.File.ReadAt(buf[:segLen], off)
		if err != nil && n == 0 {
			return nil, err
		}
		return buf[:segLen], nil
	default:
		// PayloadStream fills blocks directly via AppendStreamData; the
		// Tx timer never pulls stream objects through NextSenderMsg.
		return buf[:segLen], nil
	}
}

// firstPendingSymbol finds the lowest symbol index this Block still owes
// (exported via the block's own pending accounting through AppendRepairAdv
// in the general case, but NextSenderMsg needs direct indexed access).
func (o *Object) firstPendingSymbol(b interface{ Symbol(int) []byte }) (wire.SymbolId, bool) {
	for i := 0; i < o.numData+o.numParity; i++ {
		if b.Symbol(i) == nil {
			return wire.SymbolId(i), true
		}
	}
	return 0, false
}

func (o *Object) markSymbolSent(b interface{ HaveAllSource() bool }, id wire.BlockId, _ wire.SymbolId) {
	if b.HaveAllSource() {
		o.pendingMask[id] = false
	}
}

// ApplyRepairRequest folds a decoded NACK repair request's items back
// into this object's pending set, re-arming the blocks (and planning
// additional parity symbols for ERASURES-form requests) NextSenderMsg
// will resend (spec §4.3/§4.4: a sender receiving a NACK updates its
// pending mask and continues transmission rather than waiting for a new
// round). A completed object is reopened to StatePending so the tx loop
// picks it back up.
func (o *Object) ApplyRepairRequest(form wire.RepairForm, items []wire.RepairItem) {
	switch form {
	case wire.FormItems:
		for _, it := range items {
			if it.ObjectId != o.Id {
				continue
			}
			b := o.ensureBlock(it.BlockId, false)
			b.TxUpdate(it.SymbolId, it.SymbolId, 0)
			o.pendingMask[it.BlockId] = true
		}
	case wire.FormRanges:
		for i := 0; i+1 < len(items); i += 2 {
			start, end := items[i], items[i+1]
			if start.ObjectId != o.Id {
				continue
			}
			b := o.ensureBlock(start.BlockId, false)
			b.TxUpdate(start.SymbolId, end.SymbolId, 0)
			o.pendingMask[start.BlockId] = true
		}
	case wire.FormErasures:
		for _, it := range items {
			if it.ObjectId != o.Id {
				continue
			}
			b := o.ensureBlock(it.BlockId, false)
			// first > last skips the retransmission-range loop: an
			// ERASURES item names a missing count, not a symbol range.
			b.TxUpdate(wire.SymbolId(1), wire.SymbolId(0), int(it.SymbolId))
			o.pendingMask[it.BlockId] = true
		}
	}
	if o.State == StateComplete {
		o.State = StatePending
	}
}

// FillParity computes (and caches) one parity symbol for an already
// source-complete block, for a Tx-timer that wants to answer an
// erasure-count repair request without retransmitting source symbols
// verbatim (spec §4.3). Returns (nil, nil) if the block isn't source
// complete yet.
func (o *Object) FillParity(blockId wire.BlockId, symbolId wire.SymbolId, codec fec.Codec) ([]byte, error) {
	b, ok := o.blocks[blockId]
	if !ok || !b.HaveAllSource() {
		return nil, nil
	}
	return b.ComputeParity(int(symbolId), codec)
}

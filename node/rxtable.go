package node

import (
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/stream"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// SetPools wires this SenderNode's own segment/block pools (spec §5:
// receive-side pools are owned per-SenderNode, distinct from the
// Session's sender-side pools) so every Object EnsureObject opens picks
// them up automatically.
func (n *SenderNode) SetPools(segPool *memsys.SegmentPool, blockPool *memsys.BlockPool, onSegOverrun, onBlockOverrun func()) {
	n.segPool, n.blockPool = segPool, blockPool
	n.onSegOverrun, n.onBlockOverrun = onSegOverrun, onBlockOverrun
}

// SetDecoder wires the FEC codec this node's objects reconstruct with.
func (n *SenderNode) SetDecoder(codec fec.Codec) { n.decoder = codec }

// Decoder returns this node's configured FEC codec, nil if none.
func (n *SenderNode) Decoder() fec.Codec { return n.decoder }

// Object returns the tracked reassembly state for id, if any.
func (n *SenderNode) Object(id wire.ObjectId) (*object.Object, bool) {
	o, ok := n.rxTable[id]
	return o, ok
}

// objectAny looks up id in either rxTable (still reassembling) or
// retrieval (reassembly complete, awaiting Retrieve) — watermark ACKs
// and late-arriving CMD(ACK_REQ)/CMD(FLUSH) may reference either.
func (n *SenderNode) objectAny(id wire.ObjectId) (*object.Object, bool) {
	if o, ok := n.rxTable[id]; ok {
		return o, true
	}
	o, ok := n.retrieval[id]
	return o, ok
}

// Objects returns every object id currently tracked in rxTable.
func (n *SenderNode) Objects() []wire.ObjectId {
	ids := make([]wire.ObjectId, 0, len(n.rxTable))
	for id := range n.rxTable {
		ids = append(ids, id)
	}
	return ids
}

// EnsureObject returns the rxTable entry for id, opening one (per spec
// §4.4's block-count allocation) if this is the first PDU seen naming
// it. size may be 0 on first INFO arrival (NORM_INFO carries no object
// size, spec §4.2); a later DATA segment's FlagInfo-carried size is
// folded in via Object.Resize.
func (n *SenderNode) EnsureObject(id wire.ObjectId, size wire.ObjectSize, fti wire.FTI, maxBufferedBlocks int) *object.Object {
	if o, ok := n.rxTable[id]; ok {
		if size > 0 {
			o.Resize(size)
		}
		return o
	}
	o := object.Open(id, size, fti, maxBufferedBlocks)
	o.SetPools(n.segPool, n.blockPool, n.onSegOverrun, n.onBlockOverrun)
	n.rxTable[id] = o
	return o
}

// CompleteObject moves a fully-reassembled object from rxTable into
// retrieval, where it awaits the application's Retrieve call (spec §4.5:
// reassembly is per-object; once complete the object leaves the active
// table but late NACKs/dup DATA for it must still resolve).
func (n *SenderNode) CompleteObject(id wire.ObjectId) {
	o, ok := n.rxTable[id]
	if !ok {
		return
	}
	delete(n.rxTable, id)
	n.retrieval[id] = o
}

// Retrieve removes and returns a completed object for application
// consumption.
func (n *SenderNode) Retrieve(id wire.ObjectId) (*object.Object, bool) {
	o, ok := n.retrieval[id]
	if ok {
		delete(n.retrieval, id)
	}
	return o, ok
}

// PurgeObject drops every trace of id from this node (rxTable, retrieval,
// and its stream overlay, if any), releasing pool-owned resources.
func (n *SenderNode) PurgeObject(id wire.ObjectId) {
	if o, ok := n.rxTable[id]; ok {
		o.Close()
		delete(n.rxTable, id)
	}
	if o, ok := n.retrieval[id]; ok {
		o.Close()
		delete(n.retrieval, id)
	}
	delete(n.streams, id)
}

// EnsureStream returns (opening if absent) the receive-side Stream
// overlay for a STREAM-flagged object (spec §4.7); nil if id isn't
// (yet) tracked in rxTable.
func (n *SenderNode) EnsureStream(id wire.ObjectId) *stream.Stream {
	if st, ok := n.streams[id]; ok {
		return st
	}
	o, ok := n.rxTable[id]
	if !ok {
		return nil
	}
	st := stream.OpenReader(o)
	n.streams[id] = st
	return st
}

// Stream returns the tracked stream overlay for id, if any.
func (n *SenderNode) Stream(id wire.ObjectId) (*stream.Stream, bool) {
	st, ok := n.streams[id]
	return st, ok
}

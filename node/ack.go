package node

import "github.com/USNavalResearchLaboratory/normcore/wire"

// BuildWatermarkAck answers spec §4.5's watermark-ACK rule: "on CMD(FLUSH)
// or CMD(ACK_REQ) addressed to this receiver's NodeId, if local reception
// is complete up to (objectId,blockId,symbolId), respond with
// ACK(FLUSH)." ok is false if reception isn't complete yet (or the
// object isn't tracked at all), in which case the caller sends nothing.
func (n *SenderNode) BuildWatermarkAck(objId wire.ObjectId, blockId wire.BlockId, symbolId wire.SymbolId, ackId uint8) (wire.AckBody, bool) {
	o, ok := n.objectAny(objId)
	if !ok || !o.CompleteThrough(blockId, symbolId) {
		return wire.AckBody{}, false
	}
	return wire.AckBody{AckId: ackId}, true
}

// WatermarkFor reports the highest block this node has any record of for
// objId, and that block's last valid symbol index — the implicit
// watermark a CMD(ACK_REQ) with no explicit coordinate asks about.
func (n *SenderNode) WatermarkFor(objId wire.ObjectId) (wire.BlockId, wire.SymbolId, bool) {
	o, ok := n.objectAny(objId)
	if !ok {
		return 0, 0, false
	}
	blockId, ok := o.HighestBlock()
	if !ok {
		return 0, 0, false
	}
	return blockId, wire.SymbolId(o.BlockNumData() - 1), true
}

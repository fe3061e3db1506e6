package block

import "github.com/USNavalResearchLaboratory/normcore/wire"

// pendingRuns walks the pending bitmask and returns contiguous [first,last]
// symbol-id runs, so callers can choose ITEMS vs RANGES the way wire's
// RepairRequest expects (spec §4.2: ITEMS for <=2 elements).
func (b *Block) pendingRuns() [][2]wire.SymbolId {
	var runs [][2]wire.SymbolId
	inRun := false
	var start int
	for i, p := range b.pending {
		switch {
		case p && !inRun:
			inRun, start = true, i
		case !p && inRun:
			runs = append(runs, [2]wire.SymbolId{wire.SymbolId(start), wire.SymbolId(i - 1)})
			inRun = false
		}
	}
	if inRun {
		runs = append(runs, [2]wire.SymbolId{wire.SymbolId(start), wire.SymbolId(len(b.pending) - 1)})
	}
	return runs
}

// AppendRepairAdv serializes this block's pending symbol set into rr,
// returning false once rr has hit its maxBytes budget (caller then
// continues in a fresh RepairRequest / NACK message, per spec §4.2's
// "split across multiple NACK messages" rule).
func (b *Block) AppendRepairAdv(rr *wire.RepairRequest, objectId wire.ObjectId) bool {
	return b.appendRuns(rr, objectId)
}

// AppendRepairRequest is the receiver-side analogue of AppendRepairAdv:
// same pending-run encoding, named separately to match spec §4.3/4.4's
// vocabulary (sender advertises repair capability; receiver requests it).
func (b *Block) AppendRepairRequest(rr *wire.RepairRequest, objectId wire.ObjectId) bool {
	return b.appendRuns(rr, objectId)
}

func (b *Block) appendRuns(rr *wire.RepairRequest, objectId wire.ObjectId) bool {
	runs := b.pendingRuns()
	if len(runs) == 0 {
		return true
	}
	if len(runs) <= 2 {
		for _, r := range runs {
			for s := r[0]; s <= r[1]; s++ {
				if !rr.AppendItem(wire.RepairItem{ObjectId: objectId, BlockId: b.id, SymbolId: s}) {
					return false
				}
			}
		}
		return true
	}
	for _, r := range runs {
		if !rr.AppendRange(
			wire.RepairItem{ObjectId: objectId, BlockId: b.id, SymbolId: r[0]},
			wire.RepairItem{ObjectId: objectId, BlockId: b.id, SymbolId: r[1]},
		) {
			return false
		}
	}
	return true
}

package object

import "github.com/USNavalResearchLaboratory/normcore/wire"

// StealNonPendingBlock returns a block id eligible for reuse: one with no
// repair pending, preferred over age-based eviction (spec §4.4).
func (o *Object) StealNonPendingBlock() (wire.BlockId, bool) {
	for id, b := range o.blocks {
		if !b.IsRepairPending() {
			return id, true
		}
	}
	return 0, false
}

// StealOldestBlock evicts the numerically oldest buffered block id,
// per the default (non-realtime) policy.
func (o *Object) StealOldestBlock() (wire.BlockId, bool) {
	var (
		best    wire.BlockId
		found   bool
	)
	for id := range o.blocks {
		if !found || id.Compare(best, o.blockIdMask) < 0 {
			best, found = id, true
		}
	}
	return best, found
}

// StealNewestBlock evicts the numerically newest buffered block id,
// used under the "realtime"/"low-delay" receiver policy (spec §4.4).
func (o *Object) StealNewestBlock() (wire.BlockId, bool) {
	var (
		best  wire.BlockId
		found bool
	)
	for id := range o.blocks {
		if !found || id.Compare(best, o.blockIdMask) > 0 {
			best, found = id, true
		}
	}
	return best, found
}

// stealBlock applies the configured eviction policy, trying the
// non-pending block first (spec §4.4 eviction order).
func (o *Object) stealBlock() (wire.BlockId, bool) {
	if id, ok := o.StealNonPendingBlock(); ok {
		return id, true
	}
	if o.evictPolicy == EvictNewest {
		return o.StealNewestBlock()
	}
	return o.StealOldestBlock()
}

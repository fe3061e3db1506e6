package session

import "github.com/USNavalResearchLaboratory/normcore/wire"

// AckStatus is one destination's standing against a positive-ack
// watermark request (spec §4.7's CMD(ACK_REQ)/ACK exchange).
type AckStatus int

const (
	AckPending AckStatus = iota
	AckSuccess
	AckFailure
	AckInvalid // destination unknown to this session (never joined / purged)
)

// AckingTree tracks, per watermark request, each destination's response
// status. Positive acknowledgment in NORM is opt-in per destination
// (spec §4.7: "a sender may require flow-control acknowledgment from a
// specific set of receivers before advancing its watermark"), so a tree
// keyed by (ackId, nodeId) rather than a flat counter is needed to tell
// which destinations are still outstanding.
type AckingTree struct {
	watermark wire.ObjectId
	ackId     uint8
	status    map[wire.NodeId]AckStatus
}

// NewAckingTree starts a fresh watermark round for the given destination
// set; every destination begins AckPending.
func NewAckingTree(ackId uint8, watermark wire.ObjectId, destinations []wire.NodeId) *AckingTree {
	t := &AckingTree{
		watermark: watermark,
		ackId:     ackId,
		status:    make(map[wire.NodeId]AckStatus, len(destinations)),
	}
	for _, d := range destinations {
		t.status[d] = AckPending
	}
	return t
}

// SetWatermark resets the tree to a new, later watermark, re-arming every
// known destination to AckPending (spec §4.7: watermark only moves
// forward; acks for a stale watermark are ignored by the caller before
// reaching here).
func (t *AckingTree) SetWatermark(ackId uint8, watermark wire.ObjectId) {
	t.ackId = ackId
	t.watermark = watermark
	for d := range t.status {
		t.status[d] = AckPending
	}
}

// Watermark and AckId report this round's identifying fields, for
// matching against an incoming ACK's AckId/ServerId.
func (t *AckingTree) Watermark() wire.ObjectId { return t.watermark }
func (t *AckingTree) AckId() uint8             { return t.ackId }

// RecordAck marks dst as having acknowledged (or failed) this round.
// Unknown destinations are added with the recorded status rather than
// silently dropped, so a late-joining acker is visible to Status().
func (t *AckingTree) RecordAck(dst wire.NodeId, ok bool) {
	if ok {
		t.status[dst] = AckSuccess
	} else {
		t.status[dst] = AckFailure
	}
}

// Complete reports whether every tracked destination has left AckPending.
func (t *AckingTree) Complete() bool {
	for _, s := range t.status {
		if s == AckPending {
			return false
		}
	}
	return true
}

// Outstanding returns the destinations still pending, for re-sending
// CMD(ACK_REQ) to just the stragglers (spec §4.7's retry-the-remainder
// behavior, bounded by txRobustFactor at the caller).
func (t *AckingTree) Outstanding() []wire.NodeId {
	var out []wire.NodeId
	for d, s := range t.status {
		if s == AckPending {
			out = append(out, d)
		}
	}
	return out
}

// Status returns one destination's current standing.
func (t *AckingTree) Status(dst wire.NodeId) AckStatus {
	if s, ok := t.status[dst]; ok {
		return s
	}
	return AckInvalid
}

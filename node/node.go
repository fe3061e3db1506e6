// Package node implements SenderNode (spec §4.5): the receiver-side
// tracking of one remote sender — sync decision, NACK scheduling state,
// and congestion-control feedback bookkeeping.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package node

import (
	"math/rand"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cc"
	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/stream"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// Identity is the canonical remote-sender key (spec §9 Open Question:
// "adopt the (nodeId, instanceId, srcAddr, srcPort) tuple as the
// canonical identity" rather than NodeId alone, which the source flagged
// as racy when two senders present the same id).
type Identity struct {
	NodeId     uint32
	InstanceId uint16
	SrcAddr    string
	SrcPort    uint16
}

// NackState is the per-repair-window backoff/holdoff state machine (spec
// §4.5).
type NackState int

const (
	NackIdle NackState = iota
	NackBackoff
	NackHoldoff
)

// SenderNode tracks one remote NORM sender as seen by a receiver.
type SenderNode struct {
	Identity Identity
	Policy   config.SyncPolicy

	synced       bool
	activityTimer time.Time
	activityDur  time.Duration

	nackState   NackState
	nackDeadline time.Time
	holdoffUntil time.Time

	lossEstimator *cc.LossEstimator
	lastRtt       float64 // seconds

	ccSequenceSeen uint8
	ccFeedbackDue  bool

	// rxTable is this sender's per-object reassembly state (spec §3's
	// SenderNode data model, §4.5 "per-object reassembly orchestration");
	// retrieval holds objects the application has pulled out of rxTable
	// for consumption but the node still tracks for late-NACK bookkeeping.
	rxTable   map[wire.ObjectId]*object.Object
	retrieval map[wire.ObjectId]*object.Object
	streams   map[wire.ObjectId]*stream.Stream

	decoder   fec.Codec
	segPool   *memsys.SegmentPool
	blockPool *memsys.BlockPool

	onSegOverrun   func()
	onBlockOverrun func()
}

// New starts tracking a remote sender, choosing a sync baseline per
// policy and arming the activity timer (spec §4.5: "On arrival of any
// DATA/INFO for an unknown (senderNodeId, instanceId): choose sync
// baseline per policy, initialize rxTable, arm activity_timer =
// robustFactor x (2*GRTT)").
func New(id Identity, policy config.SyncPolicy, now time.Time, robustFactor int, grtt time.Duration) *SenderNode {
	n := &SenderNode{
		Identity:      id,
		Policy:        policy,
		lossEstimator: cc.NewLossEstimator(),
		rxTable:       make(map[wire.ObjectId]*object.Object),
		retrieval:     make(map[wire.ObjectId]*object.Object),
		streams:       make(map[wire.ObjectId]*stream.Stream),
	}
	n.ResetActivity(now, robustFactor, grtt)
	return n
}

// ResetActivity re-arms the activity timeout; called whenever any PDU
// from this sender is observed.
func (n *SenderNode) ResetActivity(now time.Time, robustFactor int, grtt time.Duration) {
	min := grtt * 2
	n.activityDur = time.Duration(robustFactor) * min
	n.activityTimer = now.Add(n.activityDur)
}

// ActivityExpired reports whether this sender has gone silent past its
// activity timeout: robustFactor x 2*GRTT of silence, as armed by
// ResetActivity (spec §5).
func (n *SenderNode) ActivityExpired(now time.Time) bool { return now.After(n.activityTimer) }

// AcceptsSync reports whether, per Policy, this node should begin
// accepting/repairing the object bearing the given flag (first-segment
// seen vs a mid-stream join). CURRENT only accepts objects whose first
// DATA segment is observed; STREAM additionally rewinds one stream object
// to block zero; ALL accepts as far back as the local cache permits
// (spec §4.5) — that cache-bound decision belongs to the caller (Session
// tx-cache bounds), so AcceptsSync just reports the policy-level
// admission rule.
func (n *SenderNode) AcceptsSync(sawFirstSegment bool) bool {
	switch n.Policy {
	case config.SyncCurrent, config.SyncStream:
		return sawFirstSegment
	case config.SyncAll:
		return true
	default:
		return sawFirstSegment
	}
}

// ArmNackBackoff chooses a NACK delay in U(0, K*GRTT) (spec §4.5) and
// transitions to NackBackoff, unless a NACK is already in flight.
func (n *SenderNode) ArmNackBackoff(now time.Time, grtt time.Duration, backoffFactor float64) (armed bool) {
	if n.nackState != NackIdle {
		return false
	}
	maxDelay := time.Duration(backoffFactor * float64(grtt))
	var delay time.Duration
	if maxDelay > 0 {
		delay = time.Duration(rand.Int63n(int64(maxDelay)))
	}
	n.nackState = NackBackoff
	n.nackDeadline = now.Add(delay)
	return true
}

// Suppress cancels a pending (backoff-phase) NACK because a REPAIR_ADV or
// an overheard peer NACK already covers the local pending set (spec §4.5).
func (n *SenderNode) Suppress() (suppressed bool) {
	if n.nackState != NackBackoff {
		return false
	}
	n.nackState = NackIdle
	return true
}

// NackDue reports whether the backoff timer has expired and a NACK
// should now be emitted.
func (n *SenderNode) NackDue(now time.Time) bool {
	return n.nackState == NackBackoff && !now.Before(n.nackDeadline)
}

// EmitNack transitions from backoff to holdoff for (K+1)*GRTT (spec
// §4.5: "After emission, enter holdoff ... during which no new NACKs are
// sent for the same repair window").
func (n *SenderNode) EmitNack(now time.Time, grtt time.Duration, backoffFactor float64) {
	n.nackState = NackHoldoff
	n.holdoffUntil = now.Add(time.Duration((backoffFactor + 1) * float64(grtt)))
}

// HoldoffActive reports whether this node is still within its post-NACK
// holdoff window (no new NACKs permitted for the same repair window).
func (n *SenderNode) HoldoffActive(now time.Time) bool {
	if n.nackState != NackHoldoff {
		return false
	}
	if now.After(n.holdoffUntil) {
		n.nackState = NackIdle
		return false
	}
	return true
}

// State exposes the current NACK state machine position, for callers
// (e.g. Object.ReceiverRepairCheck) that need timerActive/holdoffPhase
// flags.
func (n *SenderNode) State() NackState { return n.nackState }

// LossEstimator exposes this node's CC loss-event history.
func (n *SenderNode) LossEstimator() *cc.LossEstimator { return n.lossEstimator }

package node

import (
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cc"
)

// ObserveCCFeedback records a CC-FEEDBACK round from this sender's
// CC-RATE probe (spec §4.6): a new ccSequence triggers a fresh
// lossEstimator sample and marks feedback due for the next NACK/ACK this
// node emits.
func (n *SenderNode) ObserveCCFeedback(ccSequence uint8, rtt time.Duration, intervalPackets float64) {
	if ccSequence == n.ccSequenceSeen && n.ccSequenceSeen != 0 {
		return
	}
	n.ccSequenceSeen = ccSequence
	n.lastRtt = rtt.Seconds()
	n.lossEstimator.AddLossEvent(intervalPackets)
	n.ccFeedbackDue = true
}

// BuildFeedback produces this node's cc.Feedback for the active probe
// round, clearing the due flag. role is assigned by the Session/owning
// sender (CLR/PLR selection is a cross-node comparison, spec §4.6).
func (n *SenderNode) BuildFeedback(role cc.Role, rate float64, rateIsLimit bool) cc.Feedback {
	n.ccFeedbackDue = false
	return cc.Feedback{
		NodeId:        n.Identity.NodeId,
		CcSequence:    n.ccSequenceSeen,
		Role:          role,
		Rtt:           n.lastRtt,
		LossFraction:  n.lossEstimator.LossFraction(),
		Rate:          rate,
		RateIsLimit:   rateIsLimit,
	}
}

// FeedbackDue reports whether this node has an unreported CC-FEEDBACK
// round pending.
func (n *SenderNode) FeedbackDue() bool { return n.ccFeedbackDue }

package cc

// weights are the TFRC-style discount factors applied to the eight most
// recent loss intervals, most recent first (spec §4.5: "weighted history
// of eight most recent loss intervals").
var weights = [8]float64{1, 1, 1, 1, 0.8, 0.6, 0.4, 0.2}

// LossEstimator tracks loss-interval history and derives a single
// weighted loss-event fraction, the `p` term TFRC's rate equation needs.
type LossEstimator struct {
	intervals [8]float64 // interval lengths, in packets, most recent at index 0
	filled    int
}

// NewLossEstimator returns an estimator with no history yet (slow-start).
func NewLossEstimator() *LossEstimator { return &LossEstimator{} }

// AddLossEvent records a newly observed loss event that ended an interval
// of intervalPackets packets since the previous one.
func (e *LossEstimator) AddLossEvent(intervalPackets float64) {
	copy(e.intervals[1:], e.intervals[:7])
	e.intervals[0] = intervalPackets
	if e.filled < 8 {
		e.filled++
	}
}

// LossFraction returns the weighted-average loss-event fraction, or 0 if
// no loss events have been observed yet (slow-start regime).
func (e *LossEstimator) LossFraction() float64 {
	if e.filled == 0 {
		return 0
	}
	var num, den float64
	for i := 0; i < e.filled; i++ {
		num += weights[i]
		den += weights[i] * e.intervals[i]
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

// Role is a receiver's congestion-control standing relative to the group
// (spec §4.5, GLOSSARY).
type Role int

const (
	RoleNone Role = iota
	RoleCLR       // Current Limiting Receiver: its rate governs the group.
	RolePLR       // Potential Limiting Receiver: a CLR candidate.
)

// Feedback is one receiver's congestion-control report (spec §4.5's
// {ccSequence, flags, rtt, lossFraction, rate}).
type Feedback struct {
	NodeId       uint32
	CcSequence   uint8
	Role         Role
	Rtt          float64
	LossFraction float64
	Rate         float64
	RateIsLimit  bool // true if Rate is measured (LIMIT flag), not computed
}

// WorstLossFraction selects the CLR/PLR rate that should govern group
// throughput: the maximum reported loss fraction among active CLR/PLR
// feedback (spec §4.6: "p is the worst reported loss fraction among
// active CLR/PLR receivers").
func WorstLossFraction(feedback []Feedback) (p float64, worst Feedback, ok bool) {
	for _, fb := range feedback {
		if fb.Role != RoleCLR && fb.Role != RolePLR {
			continue
		}
		if !ok || fb.LossFraction > p {
			p, worst, ok = fb.LossFraction, fb, true
		}
	}
	return p, worst, ok
}

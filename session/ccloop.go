package session

import (
	"github.com/USNavalResearchLaboratory/normcore/cc"
)

// UpdateRate folds a new round of CC-FEEDBACK into the session's send
// rate (spec §4.6's TFRC loop): pick the worst CLR/PLR loss fraction,
// recompute via cc.Rate, and clamp to [TxRateMin, TxRateMax]. During
// slow-start (no loss observed yet) the rate instead doubles, capped by
// the measured receive rate when CCLimitEnabled is set (the non-RFC
// LIMIT flag, spec §9 Open Question).
func (s *Session) UpdateRate(feedback []cc.Feedback, measuredRecvRate float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, worst, ok := cc.WorstLossFraction(feedback)
	switch {
	case !ok:
		// no active CLR/PLR yet: stay in slow start.
	case p <= 0:
		s.ccSlowStart = true
	default:
		s.ccSlowStart = false
		rtt := worst.Rtt
		if rtt <= 0 {
			rtt = 0.1
		}
		s.ccRate = cc.Rate(s.Cfg.SegmentSize, rtt, p)
	}

	if s.ccSlowStart {
		s.ccRate = cc.SlowStartRate(s.ccRate, measuredRecvRate, s.Cfg.CCLimitEnabled)
	}

	s.ccRate = cc.Clamp(s.ccRate, s.Cfg.TxRateMin, s.Cfg.TxRateMax)
	s.Stats.TxRate.Set(s.ccRate)
	return s.ccRate
}

// Rate returns the session's current congestion-controlled send rate, in
// bytes/second.
func (s *Session) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ccRate
}

// NextCCSequence allocates the next CC probe round's sequence number,
// wrapping mod 256 (spec §4.6).
func (s *Session) NextCCSequence() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.ccSequence
	s.ccSequence++
	return seq
}

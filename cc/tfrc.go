// Package cc implements the TFRC-like congestion control math: the rate
// equation, loss-event history, and slow-start rate doubling (spec §4.5,
// §4.6, §9).
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package cc

import "math"

// Rate computes the TFRC-style send rate for a segment size, round-trip
// time, and loss fraction (spec §4.6):
//
//	rate = segmentSize / (rtt * (sqrt(2p/3) + 12*sqrt(3p/8)*p*(1+32p^2)))
//
// p==0 is the slow-start regime and must be handled by the caller (there
// is no send rate implied by the equation at p=0); Rate returns
// math.Inf(1) in that case so callers can detect it explicitly.
func Rate(segmentSize int, rtt float64, lossFraction float64) float64 {
	if lossFraction <= 0 {
		return math.Inf(1)
	}
	p := lossFraction
	denom := rtt * (math.Sqrt(2*p/3) + 12*math.Sqrt(3*p/8)*p*(1+32*p*p))
	if denom <= 0 {
		return math.Inf(1)
	}
	return float64(segmentSize) / denom
}

// SlowStartRate doubles prevRate per RTT, capped by 2x the measured
// receive rate (spec §9's non-RFC "LIMIT" flag, "enabled
// unconditionally" per the source but exposed here as an explicit
// parameter per the spec's recommendation that implementers make it
// optional rather than hard-coded).
func SlowStartRate(prevRate, measuredRecvRate float64, limitEnabled bool) float64 {
	next := prevRate * 2
	if limitEnabled && measuredRecvRate > 0 {
		limit := measuredRecvRate * 2
		if next > limit {
			next = limit
		}
	}
	return next
}

// Clamp bounds rate to [lo, hi] (spec §4.6: "Rate is clamped to
// [txRateMin, txRateMax]").
func Clamp(rate, lo, hi float64) float64 {
	if rate < lo {
		return lo
	}
	if rate > hi {
		return hi
	}
	return rate
}

//go:build !mono

// Package mono provides monotonic time at the resolution the wire format
// needs: GRTT, RTT, and all timer-wheel deadlines are computed from
// mono.NanoTime() so that wall-clock adjustments (NTP step, DST) never
// perturb protocol timing.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start on a monotonic
// clock source. Build with `-tags mono` to instead link directly against
// the runtime's nanotime for one fewer indirection on the hot send path.
func NanoTime() int64 { return int64(time.Since(start)) }

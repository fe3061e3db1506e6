package stream

import "errors"

// ErrBroken is returned by Read when the next unread byte range falls in
// a permanent gap (a block evicted before repair, spec §4.7): "returns a
// broken stream error which the caller must acknowledge by advancing past
// the gap via seekMsgStart."
var ErrBroken = errors.New("stream: broken (permanent gap)")

type segState struct {
	payload  []byte
	msgStart uint16
}

// Reader reassembles STREAM segments into an in-order byte sequence,
// tolerating out-of-order arrival and surfacing permanent gaps rather than
// blocking forever (spec §4.7).
type Reader struct {
	segments map[uint32]*segState // keyed by starting byteOffset
	broken   map[uint32]bool      // starting byteOffset of a permanently lost segment

	readOffset uint32
	curStart   uint32
	curConsumed int
	haveCur    bool
}

func NewReader() *Reader {
	return &Reader{
		segments: make(map[uint32]*segState),
		broken:   make(map[uint32]bool),
	}
}

// PushSegment delivers a reassembled segment at its absolute byte offset.
func (r *Reader) PushSegment(f Frame, payload []byte) {
	if f.ByteOffset < r.readOffset {
		return // already consumed or superseded
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.segments[f.ByteOffset] = &segState{payload: cp, msgStart: f.MsgStart}
}

// MarkGapPermanent records that the segment beginning at offset will never
// arrive (its block was evicted before repair).
func (r *Reader) MarkGapPermanent(offset uint32) {
	r.broken[offset] = true
}

// Read copies consecutively available bytes starting at the read index
// into buf, returning the count copied. A return of (n, nil) with
// n < len(buf) means the stream is simply waiting on data not yet
// reassembled (spec: "on a gap ... returns with fewer bytes"); (n,
// ErrBroken) means the gap is permanent and the caller must SeekPastGap.
func (r *Reader) Read(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		if !r.haveCur {
			if r.broken[r.readOffset] {
				if n > 0 {
					return n, nil
				}
				return 0, ErrBroken
			}
			seg, ok := r.segments[r.readOffset]
			if !ok {
				break // not yet arrived; transient gap
			}
			r.curStart = r.readOffset
			r.curConsumed = 0
			r.haveCur = true
			_ = seg
		}
		seg := r.segments[r.curStart]
		avail := len(seg.payload) - r.curConsumed
		if avail == 0 {
			delete(r.segments, r.curStart)
			r.haveCur = false
			continue
		}
		take := avail
		if take > len(buf)-n {
			take = len(buf) - n
		}
		copy(buf[n:], seg.payload[r.curConsumed:r.curConsumed+take])
		r.curConsumed += take
		r.readOffset += uint32(take)
		n += take
	}
	return n, nil
}

// SeekPastGap advances the read index to the next known message-start
// boundary at or after offset, discarding any buffered segments before it
// (spec: caller "must seek past the gap... using the embedded
// message-start markers").
func (r *Reader) SeekPastGap(offset uint32) {
	best := uint32(0)
	found := false
	for start, seg := range r.segments {
		if start < offset || seg.msgStart == NoMsgStart {
			continue
		}
		candidate := start + uint32(seg.msgStart)
		if !found || candidate < best {
			best, found = candidate, true
		}
	}
	if !found {
		best = offset
	}
	for start := range r.segments {
		if start < best {
			delete(r.segments, start)
		}
	}
	for start := range r.broken {
		if start < best {
			delete(r.broken, start)
		}
	}
	r.readOffset = best
	r.haveCur = false
}

// ReadOffset reports the absolute byte offset of the next unread byte.
func (r *Reader) ReadOffset() uint32 { return r.readOffset }

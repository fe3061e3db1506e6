package stream

import (
	"errors"

	"github.com/USNavalResearchLaboratory/normcore/config"
)

// ErrClosed is returned by Write once StreamClose has been called.
var ErrClosed = errors.New("stream: write after close")

// Sink receives one completed segment (header + payload) for handoff into
// the underlying object's block buffer (spec §4.7: "when a segment fills,
// mark pending and advance write_index").
type Sink func(Frame, []byte)

// Writer accumulates application bytes into fixed-size STREAM segments and
// enforces the circular buffer's flow control (spec §4.7).
type Writer struct {
	segPayloadMax int
	bufferMax     int // max outstanding (unacknowledged) segments
	outstanding   int
	pushMode      bool
	closed        bool

	writeOffset     uint32
	pending         []byte
	pendingMsgStart uint16

	sink         Sink
	armWatermark func(byteOffset uint32)
}

// NewWriter builds a Writer whose segments carry at most segPayloadMax
// bytes of user data (object segmentSize minus FrameHeaderLen) and whose
// circular buffer holds at most bufferMax unacknowledged segments.
func NewWriter(segPayloadMax, bufferMax int, pushMode bool, sink Sink, armWatermark func(uint32)) *Writer {
	return &Writer{
		segPayloadMax:   segPayloadMax,
		bufferMax:       bufferMax,
		pushMode:        pushMode,
		sink:            sink,
		armWatermark:    armWatermark,
		pendingMsgStart: NoMsgStart,
	}
}

// Write copies buf into the stream, emitting full segments to Sink as they
// fill. eom marks that the byte immediately following buf begins a new
// application message (spec §4.7's message-start offset framing).
//
// When the circular buffer is at capacity and push mode is off, Write
// returns (0, nil): the caller must retry once RetireAcked advances the
// buffer (spec: "the write blocks (returns 0 bytes written) until a
// watermark ACK arrives").
func (w *Writer) Write(buf []byte, eom bool) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.outstanding >= w.bufferMax {
		if w.pushMode {
			w.outstanding-- // push mode: oldest unacked segment is evicted by the caller's Object wiring
		} else {
			return 0, nil
		}
	}
	n := 0
	for len(buf) > 0 {
		room := w.segPayloadMax - len(w.pending)
		take := room
		if take > len(buf) {
			take = len(buf)
		}
		w.pending = append(w.pending, buf[:take]...)
		buf = buf[take:]
		n += take
		if len(w.pending) == w.segPayloadMax {
			w.flushSegment()
		}
	}
	if eom {
		w.pendingMsgStart = uint16(len(w.pending))
	}
	return n, nil
}

func (w *Writer) flushSegment() {
	frame := Frame{
		SegmentLen: uint16(len(w.pending)),
		MsgStart:   w.pendingMsgStart,
		ByteOffset: w.writeOffset,
	}
	payload := make([]byte, len(w.pending))
	copy(payload, w.pending)
	w.sink(frame, payload)
	w.writeOffset += uint32(len(w.pending))
	w.outstanding++
	w.pending = w.pending[:0]
	w.pendingMsgStart = NoMsgStart
}

// Flush implements PASSIVE (drain a runt segment) and ACTIVE (also arm a
// watermark at the current write index) flush modes (spec §4.7).
func (w *Writer) Flush(mode config.FlushMode) {
	if mode == config.FlushNone {
		return
	}
	if len(w.pending) > 0 {
		w.flushSegment()
	}
	if mode == config.FlushActive && w.armWatermark != nil {
		w.armWatermark(w.writeOffset)
	}
}

// StreamClose marks the writer closed. If graceful, it first flushes any
// runt segment and arms a watermark at the final write offset. No
// end-of-stream marker is written, and a non-graceful close leaves a
// pending runt segment unsent.
func (w *Writer) StreamClose(graceful bool) {
	if graceful {
		w.Flush(config.FlushActive)
	}
	w.closed = true
}

// RetireAcked advances the circular buffer by count segments once a
// watermark ACK confirms them delivered (spec: "retires half the
// buffer"); the caller decides count, typically bufferMax/2.
func (w *Writer) RetireAcked(count int) {
	w.outstanding -= count
	if w.outstanding < 0 {
		w.outstanding = 0
	}
}

// BufferCount reports stream_buffer_count: outstanding unacknowledged
// segments.
func (w *Writer) BufferCount() int { return w.outstanding }

// Closed reports whether StreamClose has been called.
func (w *Writer) Closed() bool { return w.closed }

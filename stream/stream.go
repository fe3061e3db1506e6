package stream

import (
	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/USNavalResearchLaboratory/normcore/object"
)

// Stream overlays an Object with the circular byte-buffer framing spec
// §4.7 describes, pairing a Writer (sender side) or Reader (receiver
// side) with the object's segment size.
type Stream struct {
	Obj    *object.Object
	Writer *Writer
	Reader *Reader
}

// minBufferSegments is the floor spec §4.7 sets: "holding at minimum two
// FEC blocks" worth of segments.
func minBufferSegments(numData int) int {
	min := 2 * numData
	if min < 2 {
		min = 2
	}
	return min
}

// OpenWriter builds a sender-side Stream, wiring Writer segments into obj
// via sink (typically the Object's sender-side block-fill path).
func OpenWriter(obj *object.Object, bufferMaxBytes int, pushMode bool, sink Sink, armWatermark func(uint32)) *Stream {
	segPayload := obj.SegmentPayloadMax() - FrameHeaderLen
	bufferSegs := bufferMaxBytes / obj.SegmentPayloadMax()
	if floor := minBufferSegments(obj.BlockNumData()); bufferSegs < floor {
		bufferSegs = floor
	}
	return &Stream{
		Obj:    obj,
		Writer: NewWriter(segPayload, bufferSegs, pushMode, sink, armWatermark),
	}
}

// OpenReader builds a receiver-side Stream.
func OpenReader(obj *object.Object) *Stream {
	return &Stream{Obj: obj, Reader: NewReader()}
}

// DefaultFlushMode is spec's PASSIVE default (spec §6).
const DefaultFlushMode = config.FlushPassive

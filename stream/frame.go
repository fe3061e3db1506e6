// Package stream implements the Stream overlay (spec §4.7): a circular
// byte-buffer view onto an object's block buffer, with message-start
// framing so a reader can resynchronize after a permanent gap.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package stream

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
)

// FrameHeaderLen is the fixed 8-byte prefix every STREAM segment carries
// on the wire ahead of its payload (spec §6: "the 8-byte stream payload
// header {segmentLen, msgStart, byteOffset} preceding user data").
const FrameHeaderLen = 8

// Frame is one decoded STREAM segment header.
type Frame struct {
	SegmentLen  uint16 // bytes of user payload following the header
	MsgStart    uint16 // offset within payload of the next message boundary, 0xFFFF if none
	ByteOffset  uint32 // absolute stream byte offset of payload[0]
}

// NoMsgStart marks a segment that carries no message boundary.
const NoMsgStart = 0xFFFF

// PutFrame encodes h followed by payload into a freshly allocated buffer.
func PutFrame(h Frame, payload []byte) []byte {
	buf := make([]byte, FrameHeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf, h.SegmentLen)
	binary.BigEndian.PutUint16(buf[2:], h.MsgStart)
	binary.BigEndian.PutUint32(buf[4:], h.ByteOffset)
	copy(buf[FrameHeaderLen:], payload)
	return buf
}

// GetFrame decodes a segment header and returns it with the remaining
// payload slice (aliased into buf).
func GetFrame(buf []byte) (Frame, []byte, error) {
	if len(buf) < FrameHeaderLen {
		return Frame{}, nil, cos.NewErrTruncated("stream frame header")
	}
	h := Frame{
		SegmentLen: binary.BigEndian.Uint16(buf),
		MsgStart:   binary.BigEndian.Uint16(buf[2:]),
		ByteOffset: binary.BigEndian.Uint32(buf[4:]),
	}
	rest := buf[FrameHeaderLen:]
	if len(rest) < int(h.SegmentLen) {
		return Frame{}, nil, cos.NewErrTruncated("stream frame payload")
	}
	return h, rest[:h.SegmentLen], nil
}

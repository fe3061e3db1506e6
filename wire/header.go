package wire

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/USNavalResearchLaboratory/normcore/cmn/debug"
	"github.com/pkg/errors"
)

// MsgType is the outer PDU discriminator (spec §4.2).
type MsgType uint8

const (
	MsgInvalid MsgType = 0
	MsgInfo    MsgType = 1
	MsgData    MsgType = 2
	MsgCmd     MsgType = 3
	MsgNack    MsgType = 4
	MsgAck     MsgType = 5
	MsgReport  MsgType = 6
)

// CmdFlavor discriminates the NORM_CMD sub-messages (spec §4.2).
type CmdFlavor uint8

const (
	CmdInvalid    CmdFlavor = 0
	CmdFlush      CmdFlavor = 1
	CmdEot        CmdFlavor = 2
	CmdSquelch    CmdFlavor = 3
	CmdCC         CmdFlavor = 4
	CmdRepairAdv  CmdFlavor = 5
	CmdAckReq     CmdFlavor = 6
	CmdApp        CmdFlavor = 7
)

const (
	Version = 1

	// common base header: version:4,type:4, hdrLen:8, sequence:16, sourceId:32
	hdrVersionTypeOff = 0
	hdrLenOff         = 1
	hdrSeqOff         = 2
	hdrSourceIdOff    = 4
	BaseHeaderLen     = 8
)

// Header is the common 8-byte NORM base header shared by every PDU.
type Header struct {
	Version  uint8
	Type     MsgType
	HdrLen   uint16 // total header length in bytes, including extensions; the 8-bit wire field holds it as a byte count
	Sequence uint16
	SourceId NodeId
}

// PutHeader writes the 8-byte base header at buf[0:8]. Callers then extend
// buf with type-specific fields and finally call SetHdrLen once the full
// (base + extensions) header length is known.
func PutHeader(buf []byte, h Header) {
	debug.Assertf(len(buf) >= BaseHeaderLen, "wire: buffer too small for base header (%d)", len(buf))
	buf[hdrVersionTypeOff] = (h.Version << 4) | (uint8(h.Type) & 0x0f)
	buf[hdrLenOff] = uint8(h.HdrLen)
	binary.BigEndian.PutUint16(buf[hdrSeqOff:], h.Sequence)
	binary.BigEndian.PutUint32(buf[hdrSourceIdOff:], uint32(h.SourceId))
}

func SetHdrLen(buf []byte, hdrLen uint16) { buf[hdrLenOff] = uint8(hdrLen) }

// GetHeader parses the base header. Returns ErrTruncated if buf is shorter
// than BaseHeaderLen.
func GetHeader(buf []byte) (Header, error) {
	if len(buf) < BaseHeaderLen {
		return Header{}, errors.Wrap(cos.NewErrTruncated("base header"), "wire.GetHeader")
	}
	var h Header
	h.Version = buf[hdrVersionTypeOff] >> 4
	h.Type = MsgType(buf[hdrVersionTypeOff] & 0x0f)
	h.HdrLen = uint16(buf[hdrLenOff])
	h.Sequence = binary.BigEndian.Uint16(buf[hdrSeqOff:])
	h.SourceId = NodeId(binary.BigEndian.Uint32(buf[hdrSourceIdOff:]))
	if h.Version != Version {
		return h, ErrInvalidVersion
	}
	return h, nil
}

var (
	ErrInvalidVersion   = errors.New("wire: invalid protocol version")
	ErrInvalidRepairReq = errors.New("wire: invalid repair request")
)

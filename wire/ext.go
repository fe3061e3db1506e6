package wire

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/pkg/errors"
)

// ExtType identifies a header extension's content (spec §4.2: "Header
// extensions are TLV-style with a one-byte type, one-byte length-in-words").
type ExtType uint8

const (
	ExtInvalid    ExtType = 0
	ExtCCFeedback ExtType = 3
	ExtFTI        ExtType = 64
	ExtAppAck     ExtType = 65
	ExtCCRate     ExtType = 128
)

const extHdrLen = 2 // type:8, length-in-words:8

// Extension is one decoded TLV header extension. Content excludes the
// 2-byte type/length prefix.
type Extension struct {
	Type    ExtType
	Content []byte
}

// AppendExtension writes a TLV extension (type, wordLen, content) onto buf
// and returns the new slice. wordLen is computed here as len(content)+2
// rounded up to whole 32-bit words, and the content is zero-padded to fill
// them.
func AppendExtension(buf []byte, typ ExtType, content []byte) []byte {
	totalLen := extHdrLen + len(content)
	words := (totalLen + 3) / 4
	out := append(buf, byte(typ), byte(words))
	out = append(out, content...)
	pad := words*4 - totalLen
	for i := 0; i < pad; i++ {
		out = append(out, 0)
	}
	return out
}

// NextExtension parses the extension at the front of buf, returning the
// extension and the remaining buffer. An UNKNOWN_EXTENSION type is not an
// error at this layer (spec §4.2: "ignored, not fatal") — callers decide
// whether to act on Type.
func NextExtension(buf []byte) (Extension, []byte, error) {
	if len(buf) < extHdrLen {
		return Extension{}, nil, errors.Wrap(cos.NewErrTruncated("header extension"), "wire.NextExtension")
	}
	typ := ExtType(buf[0])
	words := int(buf[1])
	totalLen := words * 4
	if typ >= 128 && words == 0 {
		// fixed 4-byte "compact" extensions (e.g. CC-Rate) may legally
		// encode their length implicitly; treat zero words as 4 bytes.
		totalLen = 4
	}
	if totalLen < extHdrLen || len(buf) < totalLen {
		return Extension{}, nil, errors.Wrap(cos.NewErrTruncated("header extension content"), "wire.NextExtension")
	}
	ext := Extension{Type: typ, Content: buf[extHdrLen:totalLen]}
	return ext, buf[totalLen:], nil
}

//
// FTI — one layout for every fecId (2/5/129)
//

type FTI struct {
	ObjectSize   ObjectSize
	SegmentSize  uint16
	NumData      uint16 // "block size" for small codes; blockLen cap for 129
	NumParity    uint16
	FecFieldSize uint8 // "m"
	FecId        FecId
}

// PutFTI encodes an FTI extension: the 48-bit object size, 16-bit segment
// size, 16-bit numData and 16-bit numParity, then one fecId byte and one
// field-size byte, for every fecId. ParseFTI also accepts content without
// the last two bytes and then assumes fecId 2 with field size 8.
func PutFTI(fti FTI) []byte {
	content := make([]byte, 0, 14)
	sizeBuf := make([]byte, ObjectSizeWireLen)
	PutObjectSize(sizeBuf, fti.ObjectSize)
	content = append(content, sizeBuf...)
	var segBuf, ndBuf, npBuf [2]byte
	binary.BigEndian.PutUint16(segBuf[:], fti.SegmentSize)
	binary.BigEndian.PutUint16(ndBuf[:], fti.NumData)
	binary.BigEndian.PutUint16(npBuf[:], fti.NumParity)
	content = append(content, segBuf[:]...)
	content = append(content, ndBuf[:]...)
	content = append(content, npBuf[:]...)
	content = append(content, byte(fti.FecId), fti.FecFieldSize)
	return AppendExtension(nil, ExtFTI, content)
}

func ParseFTI(content []byte) (FTI, error) {
	if len(content) < 12 {
		return FTI{}, errors.Wrap(cos.NewErrTruncated("FTI content"), "wire.ParseFTI")
	}
	var fti FTI
	fti.ObjectSize = GetObjectSize(content[0:])
	fti.SegmentSize = binary.BigEndian.Uint16(content[6:])
	fti.NumData = binary.BigEndian.Uint16(content[8:])
	fti.NumParity = binary.BigEndian.Uint16(content[10:])
	if len(content) >= 14 {
		fti.FecId = FecId(content[12])
		fti.FecFieldSize = content[13]
	} else {
		fti.FecId = FecId2
		fti.FecFieldSize = 8
	}
	return fti, nil
}

//
// CC-FEEDBACK — sequence, flags, RTT, loss, rate (spec §4.2, §4.5)
//

type CCFlag uint8

const (
	CCFlagClr   CCFlag = 0x01
	CCFlagPlr   CCFlag = 0x02
	CCFlagRtt   CCFlag = 0x04
	CCFlagStart CCFlag = 0x08
	CCFlagLeave CCFlag = 0x10
	CCFlagLimit CCFlag = 0x20
)

type CCFeedback struct {
	Sequence uint8
	Flags    CCFlag
	Rtt      uint8  // quantized, see grtt.go
	LossQ    uint16 // quantized loss fraction (16-bit form)
	Rate     uint16 // quantized send rate
}

func PutCCFeedback(fb CCFeedback) []byte {
	content := make([]byte, 7)
	content[0] = fb.Sequence
	content[1] = byte(fb.Flags)
	content[2] = fb.Rtt
	binary.BigEndian.PutUint16(content[3:], fb.LossQ)
	// rate follows the 16-bit loss field.
	binary.BigEndian.PutUint16(content[5:], fb.Rate)
	return AppendExtension(nil, ExtCCFeedback, content)
}

func ParseCCFeedback(content []byte) (CCFeedback, error) {
	if len(content) < 7 {
		return CCFeedback{}, errors.Wrap(cos.NewErrTruncated("CC-FEEDBACK content"), "wire.ParseCCFeedback")
	}
	var fb CCFeedback
	fb.Sequence = content[0]
	fb.Flags = CCFlag(content[1])
	fb.Rtt = content[2]
	fb.LossQ = binary.BigEndian.Uint16(content[3:])
	fb.Rate = binary.BigEndian.Uint16(content[5:])
	return fb, nil
}

//
// CC-RATE — advertised send rate (fixed 4-byte "compact" extension, type>=128)
//

func PutCCRate(rate uint32) []byte {
	content := make([]byte, 2)
	binary.BigEndian.PutUint16(content, uint16(rate))
	return AppendExtension(nil, ExtCCRate, content)
}

func ParseCCRate(content []byte) (uint16, error) {
	if len(content) < 2 {
		return 0, errors.Wrap(cos.NewErrTruncated("CC-RATE content"), "wire.ParseCCRate")
	}
	return binary.BigEndian.Uint16(content), nil
}

//
// APP-ACK — application-defined watermark ACK payload
//

func PutAppAck(payload []byte) []byte { return AppendExtension(nil, ExtAppAck, payload) }

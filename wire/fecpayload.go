package wire

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/pkg/errors"
)

// FecId names one of the schemes the codec understands (spec §4.2 table).
type FecId uint8

const (
	FecId2  FecId = 2   // Vandermonde / Reed-Solomon, m in {8,16}
	FecId5  FecId = 5
	FecId129 FecId = 129 // 32-bit block id plus explicit blockLen
)

// PayloadId is the decoded {blockId, symbolId, blockLen} tuple carried in
// every DATA/CMD(FLUSH)/CMD(SQUELCH) message (spec §4.2 table). BlockLen is
// only meaningful for fec_id 129.
type PayloadId struct {
	BlockId  BlockId
	SymbolId SymbolId
	BlockLen uint16
}

// PayloadIdLen returns the wire length in bytes of the FEC payload id for
// the given (fecId, fieldSize).
func PayloadIdLen(fecId FecId, fieldSize uint8) int {
	switch fecId {
	case FecId2, FecId5:
		if fieldSize == 16 {
			return 4 // blockId:16, symbolId:16
		}
		return 4 // blockId:24, symbolId:8
	case FecId129:
		return 8 // blockId:32, blockLen:16, symbolId:16
	default:
		return 4
	}
}

// PutPayloadId encodes id into buf per the fecId/fieldSize layout table.
func PutPayloadId(buf []byte, fecId FecId, fieldSize uint8, id PayloadId) {
	switch fecId {
	case FecId2, FecId5:
		if fieldSize == 16 {
			binary.BigEndian.PutUint16(buf[0:], uint16(id.BlockId))
			binary.BigEndian.PutUint16(buf[2:], uint16(id.SymbolId))
		} else {
			put24(buf[0:3], uint32(id.BlockId))
			buf[3] = uint8(id.SymbolId)
		}
	case FecId129:
		binary.BigEndian.PutUint32(buf[0:], uint32(id.BlockId))
		binary.BigEndian.PutUint16(buf[4:], id.BlockLen)
		binary.BigEndian.PutUint16(buf[6:], uint16(id.SymbolId))
	default:
		binary.BigEndian.PutUint16(buf[0:], uint16(id.BlockId))
		binary.BigEndian.PutUint16(buf[2:], uint16(id.SymbolId))
	}
}

// GetPayloadId decodes a FEC payload id; returns ErrTruncated if buf is too
// short for the given scheme.
func GetPayloadId(buf []byte, fecId FecId, fieldSize uint8) (PayloadId, error) {
	n := PayloadIdLen(fecId, fieldSize)
	if len(buf) < n {
		return PayloadId{}, errors.Wrap(cos.NewErrTruncated("fec payload id"), "wire.GetPayloadId")
	}
	var id PayloadId
	switch fecId {
	case FecId2, FecId5:
		if fieldSize == 16 {
			id.BlockId = BlockId(binary.BigEndian.Uint16(buf[0:]))
			id.SymbolId = SymbolId(binary.BigEndian.Uint16(buf[2:]))
		} else {
			id.BlockId = BlockId(get24(buf[0:3]))
			id.SymbolId = SymbolId(buf[3])
		}
	case FecId129:
		id.BlockId = BlockId(binary.BigEndian.Uint32(buf[0:]))
		id.BlockLen = binary.BigEndian.Uint16(buf[4:])
		id.SymbolId = SymbolId(binary.BigEndian.Uint16(buf[6:]))
	default:
		id.BlockId = BlockId(binary.BigEndian.Uint16(buf[0:]))
		id.SymbolId = SymbolId(binary.BigEndian.Uint16(buf[2:]))
	}
	return id, nil
}

// BlockIdMask returns the sliding-window comparison mask for a scheme, per
// spec §3 ("comparisons use a sliding-window signed delta with a
// scheme-specific mask").
func BlockIdMask(fecId FecId, fieldSize uint8) uint32 {
	switch fecId {
	case FecId2, FecId5:
		if fieldSize == 16 {
			return 0x0000ffff
		}
		return 0x00ffffff
	case FecId129:
		return 0xffffffff
	default:
		return 0x0000ffff
	}
}

func put24(buf []byte, v uint32) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

func get24(buf []byte) uint32 {
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

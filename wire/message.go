package wire

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/pkg/errors"
)

// Message bundles a decoded base header with its type-specific body and any
// trailing header extensions (spec §4.2). Exactly one of the *Body fields
// is populated, selected by Header.Type (and, for MsgCmd, CmdFlavor).
type Message struct {
	Header     Header
	Info       *InfoBody
	Data       *DataBody
	Cmd        *CmdBody
	Nack       *NackBody
	Ack        *AckBody
	Report     *ReportBody
	Extensions []Extension
}

// InfoBody carries the object's metadata segment (spec §4.2 NORM_INFO):
// object id, FEC payload id of the synthetic "info" symbol, and the
// info content itself.
type InfoBody struct {
	ObjectId  ObjectId
	PayloadId PayloadId
	Content   []byte
}

// DataBody carries one source or parity symbol (spec §4.2 NORM_DATA).
type DataBody struct {
	ObjectId   ObjectId
	PayloadId  PayloadId
	ObjectSize ObjectSize // only meaningful when FlagInfo set in Header-adjacent flags
	Flags      DataFlag
	Payload    []byte
}

type DataFlag uint8

const (
	DataFlagRepair DataFlag = 0x01
	DataFlagExplicit DataFlag = 0x02
	DataFlagInfo   DataFlag = 0x04
	DataFlagUnreliable DataFlag = 0x08
	DataFlagFile   DataFlag = 0x10
	DataFlagStream DataFlag = 0x20
	DataFlagMsgStart DataFlag = 0x40
)

// CmdBody is the envelope for the seven NORM_CMD sub-messages; Flavor picks
// which of the typed fields below applies.
type CmdBody struct {
	Flavor CmdFlavor

	Flush      *CmdFlushBody
	Squelch    *CmdSquelchBody
	CC         *CmdCCBody
	RepairAdv  *CmdRepairAdvBody
	AckReq     *CmdAckReqBody
	App        *CmdAppBody
}

type CmdFlushBody struct {
	ObjectId  ObjectId
	PayloadId PayloadId
}

type CmdSquelchBody struct {
	Invalidated []ObjectId
}

type CmdCCBody struct {
	CcSequence uint16
	GrttQ      uint8
	GrttFlags  uint8
	GssQ       uint8 // group size quantized
	Feedback   []CCFeedback
}

type CmdRepairAdvBody struct {
	Repair *RepairRequest
}

type CmdAckReqBody struct {
	AckId      uint8
	AckType    uint8
	ObjectId   ObjectId
	Destinations []NodeId
}

type CmdAppBody struct {
	Content []byte
}

type NackBody struct {
	ServerId  NodeId
	GrttQ     uint8
	LossQ     uint16
	Repair    *RepairRequest
}

type AckBody struct {
	ServerId NodeId
	AckId    uint8
	AckType  uint8
	Content  []byte
}

type ReportBody struct {
	Content []byte
}

// errShort is returned (wrapped) whenever a type-specific body can't be
// fully parsed from the remaining buffer.
func errShort(where string) error {
	return errors.Wrap(cos.NewErrTruncated(where), "wire")
}

//
// Encode
//

// EncodeInfo writes a complete NORM_INFO message into buf (which must be at
// least BaseHeaderLen+PayloadIdLen(...)+len(content)) and returns the final
// slice.
func EncodeInfo(h Header, objID ObjectId, pid PayloadId, fecID FecId, fieldSize uint8, content []byte) []byte {
	pidLen := PayloadIdLen(fecID, fieldSize)
	buf := make([]byte, BaseHeaderLen+2+pidLen)
	binary.BigEndian.PutUint16(buf[BaseHeaderLen:], uint16(objID))
	PutPayloadId(buf[BaseHeaderLen+2:], fecID, fieldSize, pid)
	buf = append(buf, content...)
	h.Type = MsgInfo
	h.HdrLen = uint16(BaseHeaderLen + 2 + pidLen)
	PutHeader(buf, h)
	return buf
}

func EncodeData(h Header, d DataBody, fecID FecId, fieldSize uint8) []byte {
	pidLen := PayloadIdLen(fecID, fieldSize)
	fixedLen := 2 + pidLen + 1
	if d.Flags&DataFlagInfo != 0 {
		fixedLen += ObjectSizeWireLen
	}
	buf := make([]byte, BaseHeaderLen+fixedLen)
	off := BaseHeaderLen
	binary.BigEndian.PutUint16(buf[off:], uint16(d.ObjectId))
	off += 2
	PutPayloadId(buf[off:], fecID, fieldSize, d.PayloadId)
	off += pidLen
	buf[off] = byte(d.Flags)
	off++
	if d.Flags&DataFlagInfo != 0 {
		PutObjectSize(buf[off:], d.ObjectSize)
		off += ObjectSizeWireLen
	}
	buf = append(buf, d.Payload...)
	h.Type = MsgData
	h.HdrLen = uint16(BaseHeaderLen + fixedLen)
	PutHeader(buf, h)
	return buf
}

func EncodeNack(h Header, n NackBody) []byte {
	buf := make([]byte, BaseHeaderLen+4+3)
	binary.BigEndian.PutUint32(buf[BaseHeaderLen:], uint32(n.ServerId))
	buf[BaseHeaderLen+4] = n.GrttQ
	binary.BigEndian.PutUint16(buf[BaseHeaderLen+5:], n.LossQ)
	h.Type = MsgNack
	h.HdrLen = uint16(len(buf))
	if n.Repair != nil {
		buf = append(buf, n.Repair.Pack()...)
	}
	PutHeader(buf, h)
	return buf
}

func EncodeAck(h Header, a AckBody) []byte {
	buf := make([]byte, BaseHeaderLen+4+2)
	binary.BigEndian.PutUint32(buf[BaseHeaderLen:], uint32(a.ServerId))
	buf[BaseHeaderLen+4] = a.AckId
	buf[BaseHeaderLen+5] = a.AckType
	buf = append(buf, a.Content...)
	h.Type = MsgAck
	h.HdrLen = uint16(BaseHeaderLen + 6)
	PutHeader(buf, h)
	return buf
}

func EncodeReport(h Header, r ReportBody) []byte {
	buf := make([]byte, BaseHeaderLen)
	buf = append(buf, r.Content...)
	h.Type = MsgReport
	h.HdrLen = BaseHeaderLen
	PutHeader(buf, h)
	return buf
}

// EncodeCmdFlush / EncodeCmdSquelch / EncodeCmdCC / EncodeCmdRepairAdv /
// EncodeCmdAckReq / EncodeCmdApp each prepend the 1-byte CmdFlavor
// discriminator that follows the base header on NORM_CMD messages.

func EncodeCmdFlush(h Header, f CmdFlushBody, fecID FecId, fieldSize uint8) []byte {
	pidLen := PayloadIdLen(fecID, fieldSize)
	buf := make([]byte, BaseHeaderLen+1+2+pidLen)
	buf[BaseHeaderLen] = byte(CmdFlush)
	binary.BigEndian.PutUint16(buf[BaseHeaderLen+1:], uint16(f.ObjectId))
	PutPayloadId(buf[BaseHeaderLen+3:], fecID, fieldSize, f.PayloadId)
	h.Type = MsgCmd
	h.HdrLen = uint16(len(buf))
	PutHeader(buf, h)
	return buf
}

func EncodeCmdSquelch(h Header, s CmdSquelchBody) []byte {
	buf := make([]byte, BaseHeaderLen+1+2*len(s.Invalidated))
	buf[BaseHeaderLen] = byte(CmdSquelch)
	off := BaseHeaderLen + 1
	for _, id := range s.Invalidated {
		binary.BigEndian.PutUint16(buf[off:], uint16(id))
		off += 2
	}
	h.Type = MsgCmd
	h.HdrLen = uint16(len(buf))
	PutHeader(buf, h)
	return buf
}

func EncodeCmdCC(h Header, cc CmdCCBody) []byte {
	buf := make([]byte, BaseHeaderLen+1+2+3)
	buf[BaseHeaderLen] = byte(CmdCC)
	binary.BigEndian.PutUint16(buf[BaseHeaderLen+1:], cc.CcSequence)
	buf[BaseHeaderLen+3] = cc.GrttQ
	buf[BaseHeaderLen+4] = cc.GrttFlags
	buf[BaseHeaderLen+5] = cc.GssQ
	for _, fb := range cc.Feedback {
		buf = append(buf, PutCCFeedback(fb)...)
	}
	h.Type = MsgCmd
	h.HdrLen = uint16(len(buf))
	PutHeader(buf, h)
	return buf
}

func EncodeCmdRepairAdv(h Header, adv CmdRepairAdvBody) []byte {
	buf := make([]byte, BaseHeaderLen+1)
	buf[BaseHeaderLen] = byte(CmdRepairAdv)
	h.Type = MsgCmd
	h.HdrLen = uint16(len(buf))
	if adv.Repair != nil {
		buf = append(buf, adv.Repair.Pack()...)
	}
	PutHeader(buf, h)
	return buf
}

func EncodeCmdAckReq(h Header, req CmdAckReqBody) []byte {
	buf := make([]byte, BaseHeaderLen+1+2+2+4*len(req.Destinations))
	buf[BaseHeaderLen] = byte(CmdAckReq)
	buf[BaseHeaderLen+1] = req.AckId
	buf[BaseHeaderLen+2] = req.AckType
	binary.BigEndian.PutUint16(buf[BaseHeaderLen+3:], uint16(req.ObjectId))
	off := BaseHeaderLen + 5
	for _, dst := range req.Destinations {
		binary.BigEndian.PutUint32(buf[off:], uint32(dst))
		off += 4
	}
	h.Type = MsgCmd
	h.HdrLen = uint16(len(buf))
	PutHeader(buf, h)
	return buf
}

func EncodeCmdApp(h Header, app CmdAppBody) []byte {
	buf := make([]byte, BaseHeaderLen+1)
	buf[BaseHeaderLen] = byte(CmdApp)
	buf = append(buf, app.Content...)
	h.Type = MsgCmd
	h.HdrLen = BaseHeaderLen + 1
	PutHeader(buf, h)
	return buf
}

//
// Decode
//

// Decode parses a complete NORM PDU, dispatching on the base header's Type
// (and, for NORM_CMD, the CmdFlavor byte that follows it).
func Decode(buf []byte, fecID FecId, fieldSize uint8) (*Message, error) {
	h, err := GetHeader(buf)
	if err != nil {
		return nil, err
	}
	body := buf[BaseHeaderLen:h.HdrLen]
	trailer := buf[h.HdrLen:]
	msg := &Message{Header: h}

	switch h.Type {
	case MsgInfo:
		if len(body) < 2 {
			return nil, errShort("NORM_INFO body")
		}
		objID := ObjectId(binary.BigEndian.Uint16(body))
		pid, err := GetPayloadId(body[2:], fecID, fieldSize)
		if err != nil {
			return nil, err
		}
		msg.Info = &InfoBody{ObjectId: objID, PayloadId: pid, Content: trailer}
	case MsgData:
		if len(body) < 2 {
			return nil, errShort("NORM_DATA body")
		}
		objID := ObjectId(binary.BigEndian.Uint16(body))
		pidLen := PayloadIdLen(fecID, fieldSize)
		if len(body) < 2+pidLen+1 {
			return nil, errShort("NORM_DATA payload id")
		}
		pid, err := GetPayloadId(body[2:], fecID, fieldSize)
		if err != nil {
			return nil, err
		}
		off := 2 + pidLen
		flags := DataFlag(body[off])
		off++
		d := &DataBody{ObjectId: objID, PayloadId: pid, Flags: flags}
		if flags&DataFlagInfo != 0 {
			if len(body) < off+ObjectSizeWireLen {
				return nil, errShort("NORM_DATA object size")
			}
			d.ObjectSize = GetObjectSize(body[off:])
			off += ObjectSizeWireLen
		}
		d.Payload = trailer
		msg.Data = d
	case MsgNack:
		if len(body) < 7 {
			return nil, errShort("NORM_NACK body")
		}
		n := &NackBody{
			ServerId: NodeId(binary.BigEndian.Uint32(body)),
			GrttQ:    body[4],
			LossQ:    binary.BigEndian.Uint16(body[5:]),
		}
		if len(trailer) > 0 {
			rr, _, err := UnpackRepairRequest(trailer, fecID, fieldSize)
			if err != nil {
				return nil, err
			}
			n.Repair = rr
		}
		msg.Nack = n
	case MsgAck:
		if len(body) < 6 {
			return nil, errShort("NORM_ACK body")
		}
		msg.Ack = &AckBody{
			ServerId: NodeId(binary.BigEndian.Uint32(body)),
			AckId:    body[4],
			AckType:  body[5],
			Content:  trailer,
		}
	case MsgReport:
		msg.Report = &ReportBody{Content: trailer}
	case MsgCmd:
		if len(body) < 1 {
			return nil, errShort("NORM_CMD flavor")
		}
		cmd, err := decodeCmd(CmdFlavor(body[0]), body[1:], trailer, fecID, fieldSize)
		if err != nil {
			return nil, err
		}
		msg.Cmd = cmd
	default:
		return nil, errors.Errorf("wire: unknown message type %d", h.Type)
	}
	return msg, nil
}

func decodeCmd(flavor CmdFlavor, rest, trailer []byte, fecID FecId, fieldSize uint8) (*CmdBody, error) {
	c := &CmdBody{Flavor: flavor}
	switch flavor {
	case CmdFlush:
		pidLen := PayloadIdLen(fecID, fieldSize)
		if len(rest) < 2+pidLen {
			return nil, errShort("CMD(FLUSH) body")
		}
		objID := ObjectId(binary.BigEndian.Uint16(rest))
		pid, err := GetPayloadId(rest[2:], fecID, fieldSize)
		if err != nil {
			return nil, err
		}
		c.Flush = &CmdFlushBody{ObjectId: objID, PayloadId: pid}
	case CmdEot:
		// no body
	case CmdSquelch:
		if len(rest)%2 != 0 {
			return nil, errShort("CMD(SQUELCH) body")
		}
		ids := make([]ObjectId, 0, len(rest)/2)
		for off := 0; off+2 <= len(rest); off += 2 {
			ids = append(ids, ObjectId(binary.BigEndian.Uint16(rest[off:])))
		}
		c.Squelch = &CmdSquelchBody{Invalidated: ids}
	case CmdCC:
		if len(rest) < 5 {
			return nil, errShort("CMD(CC) body")
		}
		cc := &CmdCCBody{
			CcSequence: binary.BigEndian.Uint16(rest),
			GrttQ:      rest[2],
			GrttFlags:  rest[3],
			GssQ:       rest[4],
		}
		ext := rest[5:]
		for len(ext) > 0 {
			e, remain, err := NextExtension(ext)
			if err != nil {
				return nil, err
			}
			if e.Type == ExtCCFeedback {
				fb, err := ParseCCFeedback(e.Content)
				if err != nil {
					return nil, err
				}
				cc.Feedback = append(cc.Feedback, fb)
			}
			ext = remain
		}
		c.CC = cc
	case CmdRepairAdv:
		adv := &CmdRepairAdvBody{}
		if len(trailer) > 0 {
			rr, _, err := UnpackRepairRequest(trailer, fecID, fieldSize)
			if err != nil {
				return nil, err
			}
			adv.Repair = rr
		}
		c.RepairAdv = adv
	case CmdAckReq:
		if len(rest) < 4 {
			return nil, errShort("CMD(ACK_REQ) body")
		}
		req := &CmdAckReqBody{
			AckId:    rest[0],
			AckType:  rest[1],
			ObjectId: ObjectId(binary.BigEndian.Uint16(rest[2:])),
		}
		for off := 4; off+4 <= len(rest); off += 4 {
			req.Destinations = append(req.Destinations, NodeId(binary.BigEndian.Uint32(rest[off:])))
		}
		c.AckReq = req
	case CmdApp:
		c.App = &CmdAppBody{Content: rest}
	default:
		return nil, errors.Errorf("wire: unknown cmd flavor %d", flavor)
	}
	return c, nil
}

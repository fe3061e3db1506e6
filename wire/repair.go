package wire

import (
	"encoding/binary"

	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/pkg/errors"
)

// RepairForm selects how a repair request's item list is encoded (spec
// §4.2): ITEMS lists explicit (object,block,symbol) triples; RANGES lists
// [start,end] pairs; ERASURES lists block+missing-count pairs.
type RepairForm uint8

const (
	FormInvalid  RepairForm = 0
	FormItems    RepairForm = 1
	FormRanges   RepairForm = 2
	FormErasures RepairForm = 3
)

// RepairScope is the flag byte naming what level a repair item addresses.
type RepairScope uint8

const (
	ScopeSegment RepairScope = 0x01
	ScopeBlock   RepairScope = 0x02
	ScopeInfo    RepairScope = 0x04
	ScopeObject  RepairScope = 0x08
)

// RepairItem is one (objectId, blockId, blockLen, symbolId) coordinate; for
// ERASURES form, SymbolId instead carries the erasure count.
type RepairItem struct {
	ObjectId ObjectId
	BlockId  BlockId
	BlockLen uint16
	SymbolId SymbolId // or erasure count, for FormErasures
}

// itemLen returns the wire length of one repair item for the given FEC
// scheme: objectId(2) + payloadId(PayloadIdLen).
func itemLen(fecId FecId, fieldSize uint8) int { return 2 + PayloadIdLen(fecId, fieldSize) }

// RepairRequest accumulates repair items under one (form, flags) header and
// serializes via Pack. AppendItem/AppendRange/AppendErasure each return
// false when the request has already reached maxBytes, signaling the
// caller to split across multiple NACK messages (spec §4.2).
type RepairRequest struct {
	Form     RepairForm
	Flags    RepairScope
	FecId    FecId
	FieldSize uint8
	items    []RepairItem // pairs for RANGES (even count)
	maxBytes int
}

func NewRepairRequest(fecId FecId, fieldSize uint8, maxBytes int) *RepairRequest {
	return &RepairRequest{FecId: fecId, FieldSize: fieldSize, maxBytes: maxBytes}
}

func (r *RepairRequest) SetFlag(f RepairScope)   { r.Flags |= f }
func (r *RepairRequest) ClearFlag(f RepairScope) { r.Flags &^= f }
func (r *RepairRequest) HasFlag(f RepairScope) bool { return r.Flags&f != 0 }

func (r *RepairRequest) wireLenIfAdded(n int) int {
	return 4 + (len(r.items)+n)*itemLen(r.FecId, r.FieldSize)
}

// AppendItem adds a single-symbol repair item (form becomes ITEMS as long
// as the total count stays at or below 2, per spec's "encoder MUST choose
// ITEMS for <=2 elements").
func (r *RepairRequest) AppendItem(item RepairItem) bool {
	if r.wireLenIfAdded(1) > r.maxBytes {
		return false
	}
	r.items = append(r.items, item)
	if len(r.items) <= 2 {
		r.Form = FormItems
	} else if r.Form != FormErasures {
		r.Form = FormRanges
	}
	return true
}

// AppendRange adds a [start,end] pair; forces RANGES form.
func (r *RepairRequest) AppendRange(start, end RepairItem) bool {
	if r.wireLenIfAdded(2) > r.maxBytes {
		return false
	}
	r.items = append(r.items, start, end)
	r.Form = FormRanges
	return true
}

// AppendErasure adds a block+erasure-count item; forces ERASURES form.
func (r *RepairRequest) AppendErasure(objectId ObjectId, blockId BlockId, blockLen uint16, erasureCount uint16) bool {
	item := RepairItem{ObjectId: objectId, BlockId: blockId, BlockLen: blockLen, SymbolId: SymbolId(erasureCount)}
	if r.wireLenIfAdded(1) > r.maxBytes {
		return false
	}
	r.items = append(r.items, item)
	r.Form = FormErasures
	return true
}

func (r *RepairRequest) Empty() bool { return len(r.items) == 0 }

// Pack serializes the request: form:8, flags:8, length-in-words:16,
// followed by the item list, zero-padded to a whole number of 32-bit
// words. Length is in 32-bit words of the padded item list only (spec §4.2's "header extensions are TLV" convention applied here to
// the repair-request sub-encoding too).
func (r *RepairRequest) Pack() []byte {
	n := itemLen(r.FecId, r.FieldSize)
	body := make([]byte, (len(r.items)*n+3)/4*4) // zero-padded to whole words
	for i, it := range r.items {
		off := i * n
		binary.BigEndian.PutUint16(body[off:], uint16(it.ObjectId))
		PutPayloadId(body[off+2:], r.FecId, r.FieldSize, PayloadId{BlockId: it.BlockId, SymbolId: it.SymbolId, BlockLen: it.BlockLen})
	}
	out := make([]byte, 4, 4+len(body))
	out[0] = byte(r.Form)
	out[1] = byte(r.Flags)
	binary.BigEndian.PutUint16(out[2:], uint16(len(body)/4))
	return append(out, body...)
}

// UnpackRepairRequest parses a repair request and returns the set of items
// it enumerates. For FormRanges the returned items are the literal [start,
// end] pairs (callers expand the range themselves against their own
// pending-bitmask representation); this keeps Unpack allocation-free beyond
// the item slice.
func UnpackRepairRequest(buf []byte, fecId FecId, fieldSize uint8) (*RepairRequest, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, errors.Wrap(cos.NewErrTruncated("repair request header"), "wire.UnpackRepairRequest")
	}
	form := RepairForm(buf[0])
	flags := RepairScope(buf[1])
	words := binary.BigEndian.Uint16(buf[2:])
	bodyLen := int(words) * 4
	if len(buf) < 4+bodyLen {
		return nil, nil, errors.Wrap(cos.NewErrTruncated("repair request body"), "wire.UnpackRepairRequest")
	}
	if form == FormInvalid || form > FormErasures {
		return nil, nil, ErrInvalidRepairReq
	}
	n := itemLen(fecId, fieldSize)
	if n == 0 || bodyLen%n >= 4 { // anything beyond word padding is malformed
		return nil, nil, ErrInvalidRepairReq
	}
	count := bodyLen / n
	r := &RepairRequest{Form: form, Flags: flags, FecId: fecId, FieldSize: fieldSize}
	body := buf[4 : 4+bodyLen]
	for i := 0; i < count; i++ {
		off := i * n
		objID := ObjectId(binary.BigEndian.Uint16(body[off:]))
		pid, err := GetPayloadId(body[off+2:], fecId, fieldSize)
		if err != nil {
			return nil, nil, err
		}
		r.items = append(r.items, RepairItem{ObjectId: objID, BlockId: pid.BlockId, BlockLen: pid.BlockLen, SymbolId: pid.SymbolId})
	}
	return r, buf[4+bodyLen:], nil
}

func (r *RepairRequest) Items() []RepairItem { return r.items }

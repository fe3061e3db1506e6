package wire

import "encoding/binary"

// ObjectSize is wire-encoded as a 48-bit value: 16-bit MSB half followed by
// a 32-bit LSB half (spec §3), so files over 4 GiB are representable while
// the base header stays word-aligned.
const ObjectSizeWireLen = 6

func PutObjectSize(buf []byte, size ObjectSize) {
	v := uint64(size) & maxObjectSize48
	binary.BigEndian.PutUint16(buf[0:], uint16(v>>32))
	binary.BigEndian.PutUint32(buf[2:], uint32(v))
}

func GetObjectSize(buf []byte) ObjectSize {
	hi := uint64(binary.BigEndian.Uint16(buf[0:]))
	lo := uint64(binary.BigEndian.Uint32(buf[2:]))
	return ObjectSize(hi<<32 | lo)
}

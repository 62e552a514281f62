// Package codec implements the length-prefixed boundary encoding used
// for dynamic sequences in host/guest data buffers. It mirrors the
// two-phase header/body decode of
// original_source/codec/src/vec.rs, generalized from Rust's Vec<T> to
// any Go slice of a fixed-header Element via generics.
//
// Layout: a 12-byte header (element count, body byte-offset, body
// byte-length, all little-endian u32) at a caller-chosen field offset,
// followed eventually by a body region holding each element's
// fixed-size slot, concatenated in order.
package codec

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of a dynamic-sequence header: count(4) +
// body offset(4) + body length(4).
const HeaderSize = 12

// Element is implemented by a fixed-header-size type a dynamic sequence
// can hold. SlotSize is the per-element header-slot width; Encode
// appends this element's slot bytes to dst.
type Element interface {
	SlotSize() int
	Encode(dst []byte) []byte
}

// SlotDecoder reconstructs a value of T from exactly SlotSize() bytes
// sliced out of the sequence's body region.
type SlotDecoder[T any] func(slot []byte) (T, error)

// EncodeSeq encodes elems as a dynamic sequence whose 12-byte header sits
// at fieldOffset and whose body immediately follows it. It returns the
// header+body bytes; callers embedding this inside a larger structure
// splice the result in at fieldOffset themselves.
func EncodeSeq[T Element](fieldOffset uint32, elems []T) []byte {
	n := uint32(len(elems))
	slotSize := 0
	if n > 0 {
		slotSize = elems[0].SlotSize()
	}
	body := make([]byte, 0, int(n)*slotSize)
	for _, e := range elems {
		body = e.Encode(body)
	}

	bodyOffset := fieldOffset + HeaderSize
	out := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(out[0:4], n)
	binary.LittleEndian.PutUint32(out[4:8], bodyOffset)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(body)))
	out = append(out, body...)
	return out
}

// DecodeSeq reads the 12-byte header at fieldOffset within buf, then
// decodes each of its n elements (of fixed width slotSize) out of the
// body region the header points to.
func DecodeSeq[T any](buf []byte, fieldOffset uint32, slotSize int, decode SlotDecoder[T]) ([]T, error) {
	end := uint64(fieldOffset) + HeaderSize
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("codec: header at offset %d exceeds buffer of length %d", fieldOffset, len(buf))
	}
	header := buf[fieldOffset : fieldOffset+HeaderSize]
	n := binary.LittleEndian.Uint32(header[0:4])
	bodyOffset := binary.LittleEndian.Uint32(header[4:8])
	bodyLen := binary.LittleEndian.Uint32(header[8:12])

	bodyEnd := uint64(bodyOffset) + uint64(bodyLen)
	if bodyEnd > uint64(len(buf)) {
		return nil, fmt.Errorf("codec: body [%d:%d] exceeds buffer of length %d", bodyOffset, bodyEnd, len(buf))
	}
	body := buf[bodyOffset:bodyEnd]

	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		start := uint64(i) * uint64(slotSize)
		end := start + uint64(slotSize)
		if end > uint64(len(body)) {
			return nil, fmt.Errorf("codec: element %d slot exceeds body of length %d", i, len(body))
		}
		v, err := decode(body[start:end])
		if err != nil {
			return nil, fmt.Errorf("codec: decoding element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Byte is the Element implementation for a dynamic sequence of raw
// bytes: its slot IS its body (H=1, no nested body).
type Byte byte

func (b Byte) SlotSize() int            { return 1 }
func (b Byte) Encode(dst []byte) []byte { return append(dst, byte(b)) }

// DecodeByte is the SlotDecoder for Byte.
func DecodeByte(slot []byte) (Byte, error) { return Byte(slot[0]), nil }

// EncodeBytes is a convenience wrapper for the common case of encoding a
// raw []byte as a dynamic sequence.
func EncodeBytes(fieldOffset uint32, v []byte) []byte {
	elems := make([]Byte, len(v))
	for i, b := range v {
		elems[i] = Byte(b)
	}
	return EncodeSeq(fieldOffset, elems)
}

// DecodeBytes is the inverse of EncodeBytes.
func DecodeBytes(buf []byte, fieldOffset uint32) ([]byte, error) {
	elems, err := DecodeSeq(buf, fieldOffset, 1, DecodeByte)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(elems))
	for i, b := range elems {
		out[i] = byte(b)
	}
	return out, nil
}

// U32 is the Element implementation for a dynamic sequence of
// little-endian 32-bit words (used e.g. for trace operand vectors).
type U32 uint32

func (v U32) SlotSize() int { return 4 }

func (v U32) Encode(dst []byte) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(dst, b[:]...)
}

// DecodeU32 is the SlotDecoder for U32.
func DecodeU32(slot []byte) (U32, error) {
	if len(slot) < 4 {
		return 0, fmt.Errorf("codec: U32 slot too short (%d bytes)", len(slot))
	}
	return U32(binary.LittleEndian.Uint32(slot)), nil
}

// Bytes32 is the Element implementation for a dynamic sequence of fixed
// 32-byte words (state keys / hashes).
type Bytes32 [32]byte

func (v Bytes32) SlotSize() int            { return 32 }
func (v Bytes32) Encode(dst []byte) []byte { return append(dst, v[:]...) }

// DecodeBytes32 is the SlotDecoder for Bytes32.
func DecodeBytes32(slot []byte) (Bytes32, error) {
	if len(slot) < 32 {
		return Bytes32{}, fmt.Errorf("codec: Bytes32 slot too short (%d bytes)", len(slot))
	}
	var out Bytes32
	copy(out[:], slot)
	return out, nil
}

// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package codec implements the payload encodings tiny-ipc uses to move
// arguments across the wire: trivially-copyable values by raw
// little-endian bytes, strings and byte views as a 16-bit length prefix
// followed by bytes, sequences as a 16-bit count followed by that many
// encoded elements, plus the file descriptor and credentials encodings
// that route through the ancillary region instead of the payload.
// Grounded in original_source's tiny_ipc/detail/encode.h and
// detail/decode.h.
package codec

import "encoding/binary"

// EncodeUint8 appends a single byte.
func EncodeUint8(p *Packet, v uint8) {
	p.Append([]byte{v})
}

// DecodeUint8 consumes a single byte.
func DecodeUint8(r *Parser) uint8 {
	return r.Take(1)[0]
}

// EncodeBool encodes a bool as a single byte, 0 or 1.
func EncodeBool(p *Packet, v bool) {
	if v {
		EncodeUint8(p, 1)
	} else {
		EncodeUint8(p, 0)
	}
}

// DecodeBool decodes a single byte as a bool; any non-zero byte is true.
func DecodeBool(r *Parser) bool {
	return DecodeUint8(r) != 0
}

// EncodeUint16 appends v as two little-endian bytes.
func EncodeUint16(p *Packet, v uint16) {
	buf := p.Reserve(2)
	binary.LittleEndian.PutUint16(buf, v)
}

// DecodeUint16 consumes two little-endian bytes.
func DecodeUint16(r *Parser) uint16 {
	return binary.LittleEndian.Uint16(r.Take(2))
}

// EncodeUint32 appends v as four little-endian bytes.
func EncodeUint32(p *Packet, v uint32) {
	buf := p.Reserve(4)
	binary.LittleEndian.PutUint32(buf, v)
}

// DecodeUint32 consumes four little-endian bytes.
func DecodeUint32(r *Parser) uint32 {
	return binary.LittleEndian.Uint32(r.Take(4))
}

// EncodeUint64 appends v as eight little-endian bytes.
func EncodeUint64(p *Packet, v uint64) {
	buf := p.Reserve(8)
	binary.LittleEndian.PutUint64(buf, v)
}

// DecodeUint64 consumes eight little-endian bytes.
func DecodeUint64(r *Parser) uint64 {
	return binary.LittleEndian.Uint64(r.Take(8))
}

// EncodeInt32 encodes a signed 32-bit integer via its unsigned bit
// pattern, matching the raw-byte-copy treatment applied to every other
// trivially-copyable value.
func EncodeInt32(p *Packet, v int32) {
	EncodeUint32(p, uint32(v))
}

// DecodeInt32 decodes a signed 32-bit integer encoded by EncodeInt32.
func DecodeInt32(r *Parser) int32 {
	return int32(DecodeUint32(r))
}

// EncodeInt64 encodes a signed 64-bit integer via its unsigned bit
// pattern.
func EncodeInt64(p *Packet, v int64) {
	EncodeUint64(p, uint64(v))
}

// DecodeInt64 decodes a signed 64-bit integer encoded by EncodeInt64.
func DecodeInt64(r *Parser) int64 {
	return int64(DecodeUint64(r))
}

// EncodeBytes encodes a byte view as a u16 length prefix followed by the
// raw bytes.
func EncodeBytes(p *Packet, v []byte) {
	EncodeUint16(p, uint16(len(v)))
	p.Append(v)
}

// DecodeBytes decodes a byte view, returning a copy of the bytes so the
// result outlives the message buffer it was read from.
func DecodeBytes(r *Parser) []byte {
	n := DecodeUint16(r)
	view := r.Take(int(n))
	out := make([]byte, n)
	copy(out, view)
	return out
}

// DecodeBytesView decodes a byte view as a borrow into the message
// buffer: valid only for the lifetime of the current received frame.
func DecodeBytesView(r *Parser) []byte {
	n := DecodeUint16(r)
	return r.Take(int(n))
}

// EncodeString encodes a string identically to EncodeBytes.
func EncodeString(p *Packet, v string) {
	EncodeBytes(p, []byte(v))
}

// DecodeString decodes a string, copying out of the message buffer.
func DecodeString(r *Parser) string {
	return string(DecodeBytesView(r))
}

// EncodeSequence encodes a dynamic sequence of T as a u16 count
// followed by count encoded elements.
func EncodeSequence[T any](p *Packet, v []T, encode func(*Packet, T)) {
	EncodeUint16(p, uint16(len(v)))
	for _, item := range v {
		encode(p, item)
	}
}

// DecodeSequence decodes a dynamic sequence of T.
func DecodeSequence[T any](r *Parser, decode func(*Parser) T) []T {
	n := DecodeUint16(r)
	out := make([]T, 0, n)
	for i := uint16(0); i < n; i++ {
		out = append(out, decode(r))
	}
	return out
}

// EncodeCredentials marks the packet to carry the sender's credentials
// in the ancillary region; it does not write anything to the payload,
// matching the original's treatment of ucred as an out-of-band type.
func EncodeCredentials(p *Packet) {
	p.RequestCreds()
}

// DecodeCredentials reads the credentials attached to the current
// frame, or the sentinel if no credentials arrived with it.
func DecodeCredentials(r *Parser) Credentials {
	return r.TakeCreds()
}

// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package wire defines the tiny-ipc frame header: a fixed 12-byte,
// little-endian layout shared by every message that crosses the socket.
package wire

import "encoding/binary"

// HeaderSize is the exact on-wire size of Header, in bytes.
const HeaderSize = 12

// InitialCookie is the first cookie value a freshly constructed Client
// hands out. Cookies increment from here and wrap on overflow.
const InitialCookie uint16 = 0xE0F0

// Header is the fixed 12-byte frame header that precedes every message:
//
//	interface_id:u32 | element_ordinal:u16 | cookie:u16 | payload_len:u16 | control_len:u16
//
// All fields are little-endian on the wire.
type Header struct {
	InterfaceID uint32
	Ordinal     uint16
	Cookie      uint16
	PayloadLen  uint16
	ControlLen  uint16
}

// ID is the (interface, ordinal, cookie) triple that identifies a message.
// For signals the cookie is always zero.
type ID struct {
	InterfaceID uint32
	Ordinal     uint16
	Cookie      uint16
}

// ID extracts the correlation triple from the header.
func (h Header) ID() ID {
	return ID{InterfaceID: h.InterfaceID, Ordinal: h.Ordinal, Cookie: h.Cookie}
}

// Encode writes the header to a 12-byte buffer. The caller must pass a
// slice of at least HeaderSize bytes.
func (h Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.InterfaceID)
	binary.LittleEndian.PutUint16(buf[4:6], h.Ordinal)
	binary.LittleEndian.PutUint16(buf[6:8], h.Cookie)
	binary.LittleEndian.PutUint16(buf[8:10], h.PayloadLen)
	binary.LittleEndian.PutUint16(buf[10:12], h.ControlLen)
}

// Decode reads a header out of a 12-byte buffer.
func Decode(buf []byte) Header {
	return Header{
		InterfaceID: binary.LittleEndian.Uint32(buf[0:4]),
		Ordinal:     binary.LittleEndian.Uint16(buf[4:6]),
		Cookie:      binary.LittleEndian.Uint16(buf[6:8]),
		PayloadLen:  binary.LittleEndian.Uint16(buf[8:10]),
		ControlLen:  binary.LittleEndian.Uint16(buf[10:12]),
	}
}

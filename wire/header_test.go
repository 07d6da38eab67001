// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{InterfaceID: 0xDEADBEEF, Ordinal: 3, Cookie: 0xE0F1, PayloadLen: 42, ControlLen: 16}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	decoded := Decode(buf)
	assert.Equal(t, h, decoded)
}

func TestHeaderLittleEndian(t *testing.T) {
	h := Header{InterfaceID: 0x01020304}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)
	assert.Equal(t, byte(0x04), buf[0])
	assert.Equal(t, byte(0x03), buf[1])
	assert.Equal(t, byte(0x02), buf[2])
	assert.Equal(t, byte(0x01), buf[3])
}

func TestHeaderID(t *testing.T) {
	h := Header{InterfaceID: 7, Ordinal: 1, Cookie: 0xE0F0, PayloadLen: 0, ControlLen: 0}
	assert.Equal(t, ID{InterfaceID: 7, Ordinal: 1, Cookie: 0xE0F0}, h.ID())
}

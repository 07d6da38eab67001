// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/APokorny/tiny-ipc/fdh"
	"github.com/APokorny/tiny-ipc/wire"
)

func TestFinalizeComputesLengths(t *testing.T) {
	p := New(wire.Header{InterfaceID: 1, Ordinal: 2, Cookie: 3})
	EncodeString(p, "hello")

	buf, oob := p.Finalize()
	require.Len(t, oob, 0)

	hdr := wire.Decode(buf)
	assert.Equal(t, uint32(1), hdr.InterfaceID)
	assert.Equal(t, uint16(2), hdr.Ordinal)
	assert.Equal(t, uint16(3), hdr.Cookie)
	assert.Equal(t, uint16(7), hdr.PayloadLen) // 2-byte length prefix + 5 bytes
	assert.Equal(t, uint16(0), hdr.ControlLen)
	assert.Len(t, buf, wire.HeaderSize+7)
}

func TestGreedySegmentPacking(t *testing.T) {
	p := New(wire.Header{})
	p.Append([]byte("a"))
	p.Append([]byte("b"))
	p.Append([]byte("c"))
	// three small appends with room in the first segment's capacity
	// must be packed into one segment, not three.
	assert.Len(t, p.segments, 1)
	assert.Equal(t, "abc", string(p.segments[0]))
}

func TestAppendStartsNewSegmentWhenFull(t *testing.T) {
	p := New(wire.Header{})
	p.Append(make([]byte, defaultSegmentCap))
	p.Append([]byte("overflow"))
	assert.Len(t, p.segments, 2)
}

func TestReserveReturnsWritableView(t *testing.T) {
	p := New(wire.Header{})
	view := p.Reserve(4)
	copy(view, []byte{1, 2, 3, 4})

	buf, _ := p.Finalize()
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[wire.HeaderSize:])
}

func TestFinalizeWithCredsAndFD(t *testing.T) {
	p := New(wire.Header{})
	p.RequestCreds()
	p.AttachFD(fdh.Borrow(3))
	p.AttachFD(fdh.Borrow(4))

	_, oob := p.Finalize()
	assert.NotEmpty(t, oob)

	parser, err := NewParser(nil, oob)
	require.NoError(t, err)
	creds := parser.TakeCreds()
	assert.NotEqual(t, sentinelCreds, creds)
	assert.Equal(t, 3, parser.TakeFD().FD())
	assert.Equal(t, 4, parser.TakeFD().FD())
}

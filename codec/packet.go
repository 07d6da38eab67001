// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package codec

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/APokorny/tiny-ipc/fdh"
	"github.com/APokorny/tiny-ipc/wire"
)

// defaultSegmentCap is the capacity a freshly pushed payload segment is
// given. Small encoders (most fixed-width arguments) then land in the
// same segment via Append/Reserve instead of each allocating their own,
// mirroring the greedy packing policy of original_source's
// tiny_ipc/detail/packet.h.
const defaultSegmentCap = 256

// Packet assembles one outbound frame: a header, a payload built from
// greedily packed segments, and an optional ancillary region (sender
// credentials and/or passed file descriptors).
type Packet struct {
	header   wire.Header
	segments [][]byte
	fds      []int
	creds    bool
}

// New starts building a packet with the given header. PayloadLen and
// ControlLen are recomputed by Finalize and need not be set by the
// caller.
func New(header wire.Header) *Packet {
	return &Packet{header: header}
}

// Append adds bytes to the payload, packing into the last open segment
// when it has room, or starting a new segment otherwise.
func (p *Packet) Append(data []byte) {
	if n := len(p.segments); n > 0 {
		last := p.segments[n-1]
		if cap(last)-len(last) >= len(data) {
			p.segments[n-1] = append(last, data...)
			return
		}
	}
	seg := make([]byte, 0, max(defaultSegmentCap, len(data)))
	seg = append(seg, data...)
	p.segments = append(p.segments, seg)
}

// Reserve reserves count bytes in the payload and returns a writable
// view over them, for encoders (e.g. length-prefixed strings) that want
// to write their length prefix and bytes directly without a second copy.
func (p *Packet) Reserve(count int) []byte {
	if n := len(p.segments); n > 0 {
		last := p.segments[n-1]
		if cap(last)-len(last) >= count {
			p.segments[n-1] = last[:len(last)+count]
			return p.segments[n-1][len(last):]
		}
	}
	seg := make([]byte, count, max(defaultSegmentCap, count))
	p.segments = append(p.segments, seg)
	return seg
}

// AttachFD enqueues a descriptor to be passed in the ancillary region.
// Descriptors are transmitted in the order attached.
func (p *Packet) AttachFD(h fdh.Handle) {
	p.fds = append(p.fds, h.FD())
}

// RequestCreds marks the packet to include the sending process's
// credentials; Finalize fills them in from the current process.
func (p *Packet) RequestCreds() {
	p.creds = true
}

func (p *Packet) payloadLen() int {
	n := 0
	for _, seg := range p.segments {
		n += len(seg)
	}
	return n
}

// Finalize computes payload_len and control_len, writes them into the
// header, and returns the assembled wire buffer (header + payload) plus
// the ancillary ("out of band") blob, ready for a single Sendmsg call.
//
// The ancillary region, when non-empty, is a credentials control message
// followed by a rights control message, in that order, matching
// original_source's commit_to_header.
func (p *Packet) Finalize() (buf []byte, oob []byte) {
	payloadLen := p.payloadLen()
	p.header.PayloadLen = uint16(payloadLen)

	var oobParts [][]byte
	if p.creds {
		cred := &unix.Ucred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
		oobParts = append(oobParts, unix.UnixCredentials(cred))
	}
	if len(p.fds) > 0 {
		oobParts = append(oobParts, unix.UnixRights(p.fds...))
	}
	for _, part := range oobParts {
		oob = append(oob, part...)
	}
	p.header.ControlLen = uint16(len(oob))

	buf = make([]byte, wire.HeaderSize+payloadLen)
	p.header.Encode(buf[:wire.HeaderSize])
	offset := wire.HeaderSize
	for _, seg := range p.segments {
		copy(buf[offset:], seg)
		offset += len(seg)
	}
	return buf, oob
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

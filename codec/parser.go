// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package codec

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/APokorny/tiny-ipc/fdh"
)

// Parser walks a received frame's payload and ancillary region in the
// same order the sender's Packet wrote them, adapted from
// original_source's tiny_ipc/detail/message_parser.h.
type Parser struct {
	payload []byte
	offset  int

	fds   []int
	fdAt  int
	creds *Credentials
}

// NewParser parses the ancillary blob that arrived alongside payload
// (which may be nil) into its credentials and rights components, ahead
// of any Take calls.
func NewParser(payload []byte, oob []byte) (*Parser, error) {
	p := &Parser{payload: payload}
	if len(oob) == 0 {
		return p, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, errors.Wrap(err, "parse control message")
	}
	for _, m := range msgs {
		switch m.Header.Type {
		case unix.SCM_CREDENTIALS:
			cred, err := unix.ParseUnixCredentials(&m)
			if err != nil {
				return nil, errors.Wrap(err, "parse SCM_CREDENTIALS")
			}
			p.creds = &Credentials{PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}
		case unix.SCM_RIGHTS:
			fds, err := unix.ParseUnixRights(&m)
			if err != nil {
				return nil, errors.Wrap(err, "parse SCM_RIGHTS")
			}
			p.fds = append(p.fds, fds...)
		}
	}
	return p, nil
}

// Take returns the next n bytes of payload and advances past them. It
// panics if fewer than n bytes remain, which indicates a payload_len
// that disagrees with the element's declared signature.
func (p *Parser) Take(n int) []byte {
	if p.offset+n > len(p.payload) {
		panic(errors.Errorf("codec: short payload: need %d bytes, have %d", n, len(p.payload)-p.offset))
	}
	b := p.payload[p.offset : p.offset+n]
	p.offset += n
	return b
}

// Remaining reports how many payload bytes have not yet been consumed.
func (p *Parser) Remaining() int {
	return len(p.payload) - p.offset
}

// TakeFD consumes the next passed descriptor, in attachment order. It
// returns an invalid handle when no descriptor is left rather than
// failing the decode.
func (p *Parser) TakeFD() fdh.Handle {
	if p.fdAt >= len(p.fds) {
		return fdh.Invalid()
	}
	fd := p.fds[p.fdAt]
	p.fdAt++
	return fdh.Own(fd)
}

// TakeCreds returns the peer credentials carried by this frame, or the
// sentinel value if none arrived.
func (p *Parser) TakeCreds() Credentials {
	if p.creds == nil {
		return sentinelCreds
	}
	return *p.creds
}

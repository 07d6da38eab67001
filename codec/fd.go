// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package codec

import "github.com/APokorny/tiny-ipc/fdh"

// EncodeFD marks the packet to pass h's descriptor in the ancillary
// region; like credentials, file descriptors are out-of-band and never
// touch the payload.
func EncodeFD(p *Packet, h fdh.Handle) {
	p.AttachFD(h)
}

// DecodeFD consumes the next descriptor passed with the current frame,
// or an invalid handle if none was sent.
func DecodeFD(r *Parser) fdh.Handle {
	return r.TakeFD()
}

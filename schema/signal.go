// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package schema

import "github.com/APokorny/tiny-ipc/codec"

// SignalDef is the typed descriptor of a fire-and-forget element: its
// identity within the schema plus the encode/decode closures for its
// parameter type P. Signals never carry a reply; the cookie on the
// wire is always zero.
type SignalDef[P any] struct {
	Interface *Interface
	Name      string
	Ordinal   uint16

	EncodeParams func(*codec.Packet, P)
	DecodeParams func(*codec.Parser) P
}

// BindSignalDef declares a signal of iface named name. It panics
// immediately if iface never declared an element called name.
func BindSignalDef[P any](
	iface *Interface,
	name string,
	encodeParams func(*codec.Packet, P),
	decodeParams func(*codec.Parser) P,
) *SignalDef[P] {
	return &SignalDef[P]{
		Interface:    iface,
		Name:         name,
		Ordinal:      iface.ordinal(name),
		EncodeParams: encodeParams,
		DecodeParams: decodeParams,
	}
}

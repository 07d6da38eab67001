// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package schema

import "github.com/APokorny/tiny-ipc/codec"

// MethodDef is the typed descriptor of a request/reply element: its
// identity within the schema, plus the encode/decode closures for its
// parameter type P and return type R. It stands in for the template
// instantiation the original generates per method signature, expressed
// here with a Go generic type instead.
//
// A method with a void return is declared with EncodeReturn and
// DecodeReturn both nil; HasReply then reports false and no reply
// packet is ever produced or awaited for it.
type MethodDef[P, R any] struct {
	Interface *Interface
	Name      string
	Ordinal   uint16
	HasReply  bool

	EncodeParams func(*codec.Packet, P)
	DecodeParams func(*codec.Parser) P
	EncodeReturn func(*codec.Packet, R)
	DecodeReturn func(*codec.Parser) R
}

// BindMethodDef declares a method of iface named name, with the given
// parameter and return encodings. It panics immediately if iface never
// declared an element called name.
func BindMethodDef[P, R any](
	iface *Interface,
	name string,
	encodeParams func(*codec.Packet, P),
	decodeParams func(*codec.Parser) P,
	encodeReturn func(*codec.Packet, R),
	decodeReturn func(*codec.Parser) R,
) *MethodDef[P, R] {
	return &MethodDef[P, R]{
		Interface:    iface,
		Name:         name,
		Ordinal:      iface.ordinal(name),
		HasReply:     encodeReturn != nil || decodeReturn != nil,
		EncodeParams: encodeParams,
		DecodeParams: decodeParams,
		EncodeReturn: encodeReturn,
		DecodeReturn: decodeReturn,
	}
}

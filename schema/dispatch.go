// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package schema

import "github.com/APokorny/tiny-ipc/codec"

// MethodGroup collects the method handlers a server-session registers
// for one interface. Dispatch resolves an
// incoming frame by first matching the group's interface id, then
// scanning its entries for the element ordinal — a linear scan on both
// axes, acceptable given how few methods and signals a realistic
// interface declares.
type MethodGroup struct {
	interfaceID uint32
	entries     []methodEntry
}

type methodEntry struct {
	ordinal uint16
	invoke  func(parser *codec.Parser, reply *codec.Packet) (hasReply bool)
}

// NewMethodGroup starts an empty method group for iface.
func NewMethodGroup(iface *Interface) *MethodGroup {
	return &MethodGroup{interfaceID: iface.ID}
}

// InterfaceID reports the interface id this group was built for.
func (g *MethodGroup) InterfaceID() uint32 {
	return g.interfaceID
}

// Dispatch invokes the handler bound to ordinal, if any. It reports
// found=false when this group has no entry for that ordinal; a missing
// handler is not an error, the message is simply consumed and
// discarded.
func (g *MethodGroup) Dispatch(ordinal uint16, parser *codec.Parser, reply *codec.Packet) (hasReply bool, found bool) {
	for _, e := range g.entries {
		if e.ordinal == ordinal {
			return e.invoke(parser, reply), true
		}
	}
	return false, false
}

// BindMethod registers handler as the implementation of def within g.
// handler receives the decoded parameters and returns the value to
// encode as the reply; for a void method (def.HasReply == false) its
// return value is ignored and no reply is ever encoded or sent.
func BindMethod[P, R any](g *MethodGroup, def *MethodDef[P, R], handler func(P) R) {
	g.entries = append(g.entries, methodEntry{
		ordinal: def.Ordinal,
		invoke: func(parser *codec.Parser, reply *codec.Packet) bool {
			p := def.DecodeParams(parser)
			r := handler(p)
			if def.HasReply {
				def.EncodeReturn(reply, r)
			}
			return def.HasReply
		},
	})
}

// SignalGroup collects the signal handlers registered for one
// interface, symmetric to MethodGroup. The same type serves a client
// dispatching inbound signals and a server-session dispatching signals
// sent by its peer.
type SignalGroup struct {
	interfaceID uint32
	entries     []signalEntry
}

type signalEntry struct {
	ordinal uint16
	invoke  func(parser *codec.Parser)
}

// NewSignalGroup starts an empty signal group for iface.
func NewSignalGroup(iface *Interface) *SignalGroup {
	return &SignalGroup{interfaceID: iface.ID}
}

// InterfaceID reports the interface id this group was built for.
func (g *SignalGroup) InterfaceID() uint32 {
	return g.interfaceID
}

// Dispatch invokes the handler bound to ordinal, if any, reporting
// found=false (not an error) when there is none.
func (g *SignalGroup) Dispatch(ordinal uint16, parser *codec.Parser) (found bool) {
	for _, e := range g.entries {
		if e.ordinal == ordinal {
			e.invoke(parser)
			return true
		}
	}
	return false
}

// BindSignal registers handler as the implementation of def within g.
func BindSignal[P any](g *SignalGroup, def *SignalDef[P], handler func(P)) {
	g.entries = append(g.entries, signalEntry{
		ordinal: def.Ordinal,
		invoke: func(parser *codec.Parser) {
			handler(def.DecodeParams(parser))
		},
	})
}

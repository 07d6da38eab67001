// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/APokorny/tiny-ipc/codec"
	"github.com/APokorny/tiny-ipc/wire"
)

func TestOrdinalsFollowDeclarationOrder(t *testing.T) {
	iface := NewInterface("chat", "1.0", "connect", "send", "text_added")
	assert.Equal(t, uint16(0), iface.ordinal("connect"))
	assert.Equal(t, uint16(1), iface.ordinal("send"))
	assert.Equal(t, uint16(2), iface.ordinal("text_added"))
}

func TestUnknownElementPanics(t *testing.T) {
	iface := NewInterface("chat", "1.0", "connect")
	assert.Panics(t, func() { iface.ordinal("missing") })
}

func TestDuplicateElementPanicsAtConstruction(t *testing.T) {
	assert.Panics(t, func() { NewInterface("chat", "1.0", "connect", "connect") })
}

func TestInterfaceIDIsStableAcrossProtocolReordering(t *testing.T) {
	a := NewInterface("chat", "1.0", "connect")
	b := NewInterface("other", "1.0", "ping")

	p1 := NewProtocol("p", a, b)
	p2 := NewProtocol("p", b, a)

	assert.Equal(t, p1.Interface("chat").ID, p2.Interface("chat").ID)
	assert.Equal(t, p1.Interface("chat").ID, a.ID)
}

func TestVoidMethodHasNoReply(t *testing.T) {
	iface := NewInterface("chat", "1.0", "send")
	def := BindMethodDef[string, struct{}](iface, "send",
		func(p *codec.Packet, v string) { codec.EncodeString(p, v) },
		func(r *codec.Parser) string { return codec.DecodeString(r) },
		nil, nil,
	)
	assert.False(t, def.HasReply)
}

func TestMethodDispatchFindsBoundHandler(t *testing.T) {
	iface := NewInterface("chat", "1.0", "echo")
	def := BindMethodDef[string, string](iface, "echo",
		func(p *codec.Packet, v string) { codec.EncodeString(p, v) },
		func(r *codec.Parser) string { return codec.DecodeString(r) },
		func(p *codec.Packet, v string) { codec.EncodeString(p, v) },
		func(r *codec.Parser) string { return codec.DecodeString(r) },
	)

	group := NewMethodGroup(iface)
	BindMethod(group, def, func(s string) string { return s + s })

	p := codec.New(wire.Header{})
	codec.EncodeString(p, "hi")
	buf, oob := p.Finalize()
	parser, err := codec.NewParser(buf[wire.HeaderSize:], oob)
	assert.NoError(t, err)

	reply := codec.New(wire.Header{})
	hasReply, found := group.Dispatch(def.Ordinal, parser, reply)
	assert.True(t, found)
	assert.True(t, hasReply)

	replyBuf, _ := reply.Finalize()
	replyParser, err := codec.NewParser(replyBuf[wire.HeaderSize:], nil)
	assert.NoError(t, err)
	assert.Equal(t, "hihi", codec.DecodeString(replyParser))
}

func TestMethodDispatchMissingHandlerIsNotFound(t *testing.T) {
	iface := NewInterface("chat", "1.0", "echo")
	group := NewMethodGroup(iface)
	_, found := group.Dispatch(0, nil, nil)
	assert.False(t, found)
}

// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package tinyipc_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	tinyipc "github.com/APokorny/tiny-ipc"
	"github.com/APokorny/tiny-ipc/codec"
	"github.com/APokorny/tiny-ipc/fdh"
	"github.com/APokorny/tiny-ipc/internal/testsupport"
	"github.com/APokorny/tiny-ipc/schema"
	"github.com/APokorny/tiny-ipc/transport"
	"github.com/APokorny/tiny-ipc/wire"
)

var echoInterface = schema.NewInterface("echo", "1.0", "connect", "upload", "text_added")

var connectDef = schema.BindMethodDef[uint32, bool](
	echoInterface, "connect",
	func(p *codec.Packet, v uint32) { codec.EncodeUint32(p, v) },
	func(r *codec.Parser) uint32 { return codec.DecodeUint32(r) },
	func(p *codec.Packet, v bool) { codec.EncodeBool(p, v) },
	func(r *codec.Parser) bool { return codec.DecodeBool(r) },
)

type uploadParams struct {
	FD fdh.Handle
}

var uploadDef = schema.BindMethodDef[uploadParams, struct{}](
	echoInterface, "upload",
	func(p *codec.Packet, v uploadParams) { codec.EncodeFD(p, v.FD) },
	func(r *codec.Parser) uploadParams { return uploadParams{FD: codec.DecodeFD(r)} },
	nil, nil,
)

var textAddedDef = schema.BindSignalDef[string](
	echoInterface, "text_added",
	func(p *codec.Packet, v string) { codec.EncodeString(p, v) },
	func(r *codec.Parser) string { return codec.DecodeString(r) },
)

func newClientSessionPair(t *testing.T) (*tinyipc.Client, *tinyipc.Session) {
	t.Helper()
	clientConn, serverConn := testsupport.MustPair(t)
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	clientT, err := transport.New(clientConn)
	require.NoError(t, err)
	serverT, err := transport.New(serverConn)
	require.NoError(t, err)

	client := tinyipc.NewClient(clientT, tinyipc.Logger{})
	session := tinyipc.NewSession(serverT, tinyipc.Logger{})
	return client, session
}

func TestConnectBoolRoundTrip(t *testing.T) {
	client, session := newClientSessionPair(t)

	methods := schema.NewMethodGroup(echoInterface)
	schema.BindMethod(methods, connectDef, func(v uint32) bool { return v == 42 })
	session.AddMethodGroup(methods)
	go session.Run(context.Background())

	got := make(chan bool, 1)
	require.NoError(t, tinyipc.Invoke(client, connectDef, uint32(42), func(ok bool) { got <- ok }))
	require.NoError(t, client.DispatchOnce())

	select {
	case ok := <-got:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("reply callback never ran")
	}
}

func TestTextSignalFanOut(t *testing.T) {
	client, session := newClientSessionPair(t)

	signals := schema.NewSignalGroup(echoInterface)
	got := make(chan string, 1)
	schema.BindSignal(signals, textAddedDef, func(s string) { got <- s })
	client.AddSignalGroup(signals)

	require.NoError(t, tinyipc.SendSignal(session, textAddedDef, "hello"))
	require.NoError(t, client.DispatchOnce())

	select {
	case text := <-got:
		assert.Equal(t, "hello", text)
	case <-time.After(time.Second):
		t.Fatal("signal handler never ran")
	}
}

func TestOutOfOrderRepliesCorrelateByCookie(t *testing.T) {
	clientConn, serverConn := testsupport.MustPair(t)
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	clientT, err := transport.New(clientConn)
	require.NoError(t, err)
	serverT, err := transport.New(serverConn)
	require.NoError(t, err)

	client := tinyipc.NewClient(clientT, tinyipc.Logger{})

	var order []uint32
	require.NoError(t, tinyipc.Invoke(client, connectDef, uint32(10), func(ok bool) { order = append(order, 10) }))
	require.NoError(t, tinyipc.Invoke(client, connectDef, uint32(11), func(ok bool) { order = append(order, 11) }))

	hdrA, _, _, err := serverT.Receive()
	require.NoError(t, err)
	hdrB, _, _, err := serverT.Receive()
	require.NoError(t, err)

	// Reply to the second request (hdrB) before the first (hdrA), proving
	// the client correlates callbacks by cookie rather than by the order
	// requests were sent or replies arrive.
	replyB := codec.New(wire.Header{InterfaceID: hdrB.InterfaceID, Ordinal: hdrB.Ordinal, Cookie: hdrB.Cookie})
	codec.EncodeBool(replyB, true)
	buf, oob := replyB.Finalize()
	require.NoError(t, serverT.Send(buf, oob))

	replyA := codec.New(wire.Header{InterfaceID: hdrA.InterfaceID, Ordinal: hdrA.Ordinal, Cookie: hdrA.Cookie})
	codec.EncodeBool(replyA, true)
	buf, oob = replyA.Finalize()
	require.NoError(t, serverT.Send(buf, oob))

	require.NoError(t, client.DispatchOnce())
	require.NoError(t, client.DispatchOnce())

	assert.Equal(t, []uint32{11, 10}, order)
	assert.Equal(t, 0, client.Pending())
}

func TestFDPassing(t *testing.T) {
	client, session := newClientSessionPair(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var receivedFD fdh.Handle
	methods := schema.NewMethodGroup(echoInterface)
	schema.BindMethod(methods, uploadDef, func(v uploadParams) struct{} {
		receivedFD = v.FD
		return struct{}{}
	})
	session.AddMethodGroup(methods)

	require.NoError(t, tinyipc.Invoke(client, uploadDef, uploadParams{FD: fdh.Borrow(int(r.Fd()))}, nil))
	require.NoError(t, session.DispatchOnce())

	require.True(t, receivedFD.Valid())
	defer receivedFD.Close()

	_, err = w.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := unix.Read(receivedFD.FD(), buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestPeerCloseFiresErrorHandler(t *testing.T) {
	clientConn, serverConn := testsupport.MustPair(t)
	t.Cleanup(func() { serverConn.Close() })

	serverT, err := transport.New(serverConn)
	require.NoError(t, err)
	session := tinyipc.NewSession(serverT, tinyipc.Logger{})

	errCh := make(chan error, 1)
	session.OnError(func(err error) { errCh <- err })

	require.NoError(t, clientConn.Close())

	go session.Run(context.Background())

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("session error handler never ran")
	}
}


// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package transport implements a thin socket wrapper: it sends
// assembled frames over a connected Unix domain socket and receives one
// full frame at a time via a non-blocking peek-then-receive pair.
// Grounded in original_source's tiny_ipc/detail/message_comm.h, and in
// the vendored govmm qemu QMP client's use of
// *net.UnixConn.WriteMsgUnix to carry SCM_RIGHTS alongside a command
// buffer.
package transport

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/APokorny/tiny-ipc/wire"
)

// ErrShortSend is returned when the kernel accepts fewer bytes than the
// frame requires. The original treats this as unspecified behavior;
// this port treats it as a hard transport failure instead of retrying.
var ErrShortSend = errors.New("transport: short send")

// ErrShortHeader is returned when a peeked message is smaller than a
// frame header, which can only mean the peer is not speaking the
// protocol.
var ErrShortHeader = errors.New("transport: short header")

// ErrClosed is returned by Receive when the peer has closed its end of
// the socket.
var ErrClosed = errors.New("transport: closed")

// Transport wraps a connected Unix domain socket, enabling credential
// and security-label passing on construction.
type Transport struct {
	conn *net.UnixConn
}

// New wraps conn, enabling SO_PASSCRED and SO_PASSSEC so that every
// subsequent receive can carry sender credentials and a security label.
func New(conn *net.UnixConn) (*Transport, error) {
	t := &Transport{conn: conn}
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "transport: syscall conn")
	}
	var setErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1); e != nil {
			setErr = e
			return
		}
		// SO_PASSSEC is not available on every kernel build; a failure
		// here does not prevent credential passing, so it is tolerated.
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSSEC, 1)
	})
	if err != nil {
		return nil, errors.Wrap(err, "transport: setsockopt control")
	}
	if setErr != nil {
		return nil, errors.Wrap(setErr, "transport: SO_PASSCRED")
	}
	return t, nil
}

// Close closes the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Send transmits buf (header + payload) and oob (ancillary data) as a
// single message. It issues exactly one sendmsg with MSG_DONTWAIT and
// MSG_NOSIGNAL: a full socket buffer is reported as an error rather than
// waited on, and a short send is reported as ErrShortSend rather than
// retried.
func (t *Transport) Send(buf, oob []byte) error {
	raw, err := t.conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "transport: syscall conn")
	}
	var n int
	var sendErr error
	ctlErr := raw.Write(func(fd uintptr) bool {
		n, sendErr = unix.SendmsgN(int(fd), buf, oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		return true
	})
	if ctlErr != nil {
		return errors.Wrap(ctlErr, "transport: sendmsg")
	}
	if sendErr != nil {
		return errors.Wrap(sendErr, "transport: sendmsg")
	}
	if n != len(buf) {
		return ErrShortSend
	}
	return nil
}

// Receive peeks the next message's header to learn its payload_len and
// control_len, then performs a second, consuming receive of exactly the
// header and payload, with MSG_CMSG_CLOEXEC set on any descriptors
// delivered. When control_len is non-zero the ancillary buffer also has
// room for the credentials message the kernel adds on a socket with
// SO_PASSCRED; when it is zero no ancillary data is read. Both receives
// use MSG_DONTWAIT; on EAGAIN the calling goroutine waits for the socket
// to become readable and the receive is repeated. The peek and the
// receive are two separate system calls, so Receive assumes that only
// one goroutine receives on a Transport at a time.
func (t *Transport) Receive() (hdr wire.Header, payload []byte, oob []byte, err error) {
	raw, err := t.conn.SyscallConn()
	if err != nil {
		return wire.Header{}, nil, nil, errors.Wrap(err, "transport: syscall conn")
	}

	var hdrBuf [wire.HeaderSize]byte
	var peekErr error
	ctlErr := raw.Read(func(fd uintptr) bool {
		n, _, _, _, rErr := unix.Recvmsg(int(fd), hdrBuf[:], nil, unix.MSG_PEEK|unix.MSG_TRUNC|unix.MSG_DONTWAIT)
		if rErr == unix.EAGAIN {
			return false
		}
		if rErr != nil {
			peekErr = rErr
			return true
		}
		if n == 0 {
			peekErr = ErrClosed
			return true
		}
		if n < wire.HeaderSize {
			peekErr = ErrShortHeader
			return true
		}
		return true
	})
	if ctlErr != nil {
		return wire.Header{}, nil, nil, errors.Wrap(ctlErr, "transport: peek")
	}
	if peekErr != nil {
		return wire.Header{}, nil, nil, peekErr
	}
	hdr = wire.Decode(hdrBuf[:])

	full := make([]byte, wire.HeaderSize+int(hdr.PayloadLen))
	var ancillary []byte
	if hdr.ControlLen > 0 {
		// SO_PASSCRED makes the kernel put a credentials message ahead of
		// any passed descriptors even when the sender attached none.
		ancillary = make([]byte, int(hdr.ControlLen)+unix.CmsgSpace(unix.SizeofUcred))
	}
	var recvErr error
	ctlErr = raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, rErr := unix.Recvmsg(int(fd), full, ancillary, unix.MSG_CMSG_CLOEXEC|unix.MSG_DONTWAIT)
		if rErr == unix.EAGAIN {
			return false
		}
		if rErr != nil {
			recvErr = rErr
			return true
		}
		if n < len(full) {
			recvErr = ErrShortHeader
			return true
		}
		ancillary = ancillary[:oobn]
		return true
	})
	if ctlErr != nil {
		return wire.Header{}, nil, nil, errors.Wrap(ctlErr, "transport: receive")
	}
	if recvErr != nil {
		return wire.Header{}, nil, nil, errors.Wrap(recvErr, "transport: recvmsg")
	}
	return hdr, full[wire.HeaderSize:], ancillary, nil
}

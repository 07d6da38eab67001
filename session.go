// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package tinyipc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/APokorny/tiny-ipc/codec"
	"github.com/APokorny/tiny-ipc/reactor"
	"github.com/APokorny/tiny-ipc/schema"
	"github.com/APokorny/tiny-ipc/transport"
	"github.com/APokorny/tiny-ipc/wire"
)

// Session is the server side of one connected peer: a transport and an
// error-handler continuation, with no request state of its own. Method
// calls are handled synchronously with respect to the dispatch loop: a
// reply, if any, is built and sent before DispatchOnce returns.
type Session struct {
	transport *transport.Transport
	log       Logger

	mu           sync.Mutex
	methodGroups []*schema.MethodGroup
	signalGroups []*schema.SignalGroup
	errorHandler func(error)
	closed       bool
}

// NewSession wraps t. log may be the zero Logger.
func NewSession(t *transport.Transport, log Logger) *Session {
	if log.entry == nil {
		log = NewLogger(nil)
	}
	return &Session{transport: t, log: log}
}

// OnError registers the handler invoked when the transport fails or the
// readiness wait reports an error.
func (s *Session) OnError(handler func(error)) {
	s.mu.Lock()
	s.errorHandler = handler
	s.mu.Unlock()
}

// AddMethodGroup registers g's handlers for inbound method calls whose
// interface id matches g.
func (s *Session) AddMethodGroup(g *schema.MethodGroup) {
	s.mu.Lock()
	s.methodGroups = append(s.methodGroups, g)
	s.mu.Unlock()
}

// AddSignalGroup registers g's handlers for inbound signals sent by the
// peer.
func (s *Session) AddSignalGroup(g *schema.SignalGroup) {
	s.mu.Lock()
	s.signalGroups = append(s.signalGroups, g)
	s.mu.Unlock()
}

// SendSignal sends a fire-and-forget frame built from def and args,
// with cookie 0.
func SendSignal[P any](s *Session, def *schema.SignalDef[P], args P) error {
	pkt := codec.New(wire.Header{InterfaceID: def.Interface.ID, Ordinal: def.Ordinal, Cookie: 0})
	def.EncodeParams(pkt, args)
	buf, oob := pkt.Finalize()
	if err := s.transport.Send(buf, oob); err != nil {
		return errors.Wrap(err, "tinyipc: send_signal")
	}
	return nil
}

// DispatchOnce peeks and receives exactly one message, resolves it to a
// method or signal group by interface id and then ordinal, and invokes
// the matching handler, encoding and sending a reply when the matched
// method has one.
func (s *Session) DispatchOnce() error {
	hdr, payload, oob, err := s.transport.Receive()
	if err != nil {
		s.fail(err)
		return err
	}

	parser, err := codec.NewParser(payload, oob)
	if err != nil {
		wrapped := errors.Wrap(ErrMalformed, err.Error())
		s.fail(wrapped)
		return wrapped
	}

	return s.safeInvoke(func() { s.route(hdr, parser) })
}

func (s *Session) route(hdr wire.Header, parser *codec.Parser) {
	s.mu.Lock()
	methodGroups := s.methodGroups
	signalGroups := s.signalGroups
	s.mu.Unlock()

	for _, g := range methodGroups {
		if g.InterfaceID() != hdr.InterfaceID {
			continue
		}
		reply := codec.New(wire.Header{InterfaceID: hdr.InterfaceID, Ordinal: hdr.Ordinal, Cookie: hdr.Cookie})
		hasReply, found := g.Dispatch(hdr.Ordinal, parser, reply)
		if !found {
			break
		}
		if !hasReply {
			return
		}
		buf, oob := reply.Finalize()
		if err := s.transport.Send(buf, oob); err != nil {
			s.fail(errors.Wrap(err, "tinyipc: reply"))
		}
		return
	}

	for _, g := range signalGroups {
		if g.InterfaceID() != hdr.InterfaceID {
			continue
		}
		if !g.Dispatch(hdr.Ordinal, parser) {
			s.log.debugNoHandler(hdr.InterfaceID, hdr.Ordinal, hdr.Cookie)
		}
		return
	}

	s.log.debugUnmatched(hdr.InterfaceID, hdr.Ordinal, hdr.Cookie)
}

func (s *Session) safeInvoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrMalformed, "%v", r)
			s.fail(err)
		}
	}()
	fn()
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	handler := s.errorHandler
	s.mu.Unlock()
	_ = s.transport.Close()
	if handler != nil {
		handler(err)
	}
}

// Run drives DispatchOnce in a loop until ctx is cancelled or a
// dispatch fails, for embedders that have no reactor of their own.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.DispatchOnce(); err != nil {
			return err
		}
	}
}

// Serve arms source to drive the session's dispatch loop, re-arming
// after every message, and wires the reactor's own error signal to the
// session's teardown path.
func (s *Session) Serve(source reactor.ReadinessSource) {
	var onReadable func()
	onReadable = func() {
		if err := s.DispatchOnce(); err != nil {
			return
		}
		source.OnReadable(onReadable)
	}
	source.OnReadable(onReadable)
	source.OnError(func(err error) {
		if err == nil {
			err = ErrClosed
		}
		s.fail(err)
	})
}

// Close cancels and closes the session's transport synchronously.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.transport.Close()
}

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

// Client is the caller side of the protocol: a transport, a cookie
// counter, and the table of requests awaiting a reply. The
// active-request table is guarded by a mutex rather than left to a
// single-threaded assumption, since Go embedders routinely call Invoke
// from one goroutine while DispatchOnce runs on another.
type Client struct {
	transport *transport.Transport
	log       Logger

	mu     sync.Mutex
	cookie uint16
	active map[wire.ID]func(*codec.Parser)
	closed bool

	signalGroups []*schema.SignalGroup
	errorHandler func(error)
}

// NewClient wraps t. log may be the zero Logger, which behaves like
// NewLogger(nil).
func NewClient(t *transport.Transport, log Logger) *Client {
	if log.entry == nil {
		log = NewLogger(nil)
	}
	return &Client{
		transport: t,
		log:       log,
		cookie:    wire.InitialCookie,
		active:    make(map[wire.ID]func(*codec.Parser)),
	}
}

// OnError registers the handler invoked when the transport fails.
// Exactly one handler may be registered; later calls replace the
// previous one.
func (c *Client) OnError(handler func(error)) {
	c.mu.Lock()
	c.errorHandler = handler
	c.mu.Unlock()
}

// AddSignalGroup registers g's handlers for inbound signals whose
// interface id matches g.
func (c *Client) AddSignalGroup(g *schema.SignalGroup) {
	c.mu.Lock()
	c.signalGroups = append(c.signalGroups, g)
	c.mu.Unlock()
}

func (c *Client) nextCookie() uint16 {
	cookie := c.cookie
	c.cookie++
	return cookie
}

// Invoke sends a method call built from def and args, registering reply
// to run with the decoded return value once the matching reply frame
// arrives. For a void method (def.HasReply == false) reply is never
// called and may be nil.
func Invoke[P, R any](c *Client, def *schema.MethodDef[P, R], args P, reply func(R)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	cookie := c.nextCookie()
	id := wire.ID{InterfaceID: def.Interface.ID, Ordinal: def.Ordinal, Cookie: cookie}
	if def.HasReply {
		c.active[id] = func(p *codec.Parser) {
			if reply != nil {
				reply(def.DecodeReturn(p))
			}
		}
	}
	c.mu.Unlock()

	pkt := codec.New(wire.Header{InterfaceID: def.Interface.ID, Ordinal: def.Ordinal, Cookie: cookie})
	def.EncodeParams(pkt, args)
	buf, oob := pkt.Finalize()

	if err := c.transport.Send(buf, oob); err != nil {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
		return errors.Wrap(err, "tinyipc: invoke")
	}
	return nil
}

// Pending reports how many requests are currently awaiting a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// DispatchOnce peeks and receives exactly one message and routes it: to
// the matching active request if its (interface_id, ordinal, cookie)
// triple is in the table, otherwise to a registered signal group. It
// assumes the transport is already known to be readable.
func (c *Client) DispatchOnce() error {
	hdr, payload, oob, err := c.transport.Receive()
	if err != nil {
		c.fail(err)
		return err
	}

	parser, err := codec.NewParser(payload, oob)
	if err != nil {
		c.fail(errors.Wrap(ErrMalformed, err.Error()))
		return err
	}

	id := hdr.ID()
	c.mu.Lock()
	handler, found := c.active[id]
	if found {
		delete(c.active, id)
	}
	c.mu.Unlock()

	if found {
		return c.safeInvoke(func() { handler(parser) })
	}
	return c.safeInvoke(func() { c.dispatchSignal(hdr, parser) })
}

func (c *Client) dispatchSignal(hdr wire.Header, parser *codec.Parser) {
	c.mu.Lock()
	groups := c.signalGroups
	c.mu.Unlock()

	for _, g := range groups {
		if g.InterfaceID() != hdr.InterfaceID {
			continue
		}
		if g.Dispatch(hdr.Ordinal, parser) {
			return
		}
		c.log.debugNoHandler(hdr.InterfaceID, hdr.Ordinal, hdr.Cookie)
		return
	}
	c.log.debugUnmatched(hdr.InterfaceID, hdr.Ordinal, hdr.Cookie)
}

// safeInvoke recovers a panic raised by a decoder reading past the
// payload. Such over-reads are unrecoverable; the client is torn down
// via the same path as a transport error.
func (c *Client) safeInvoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrMalformed, "%v", r)
			c.fail(err)
		}
	}()
	fn()
	return nil
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	handler := c.errorHandler
	c.active = make(map[wire.ID]func(*codec.Parser))
	c.mu.Unlock()
	if handler != nil {
		handler(err)
	}
}

// Run drives DispatchOnce in a loop until ctx is cancelled or a
// dispatch fails, for embedders that have no reactor of their own and
// simply want a dedicated goroutine driving the client. Serve is the
// alternative for embedders that wire in a reactor.ReadinessSource
// instead.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.DispatchOnce(); err != nil {
			return err
		}
	}
}

// Serve arms source to drive the client's dispatch loop: each
// readiness signal runs exactly one DispatchOnce and re-arms, and any
// reactor-reported error is routed to the client's error handler.
func (c *Client) Serve(source reactor.ReadinessSource) {
	var onReadable func()
	onReadable = func() {
		if err := c.DispatchOnce(); err != nil {
			return
		}
		source.OnReadable(onReadable)
	}
	source.OnReadable(onReadable)
	source.OnError(c.fail)
}

// Close drops the active-request table; in-flight replies that never
// arrive are discarded rather than delivered. It does not close the
// underlying transport, which the caller owns.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.active = make(map[wire.ID]func(*codec.Parser))
	c.mu.Unlock()
}

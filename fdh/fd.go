// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package fdh implements a close-once file descriptor handle with
// owning and borrowing modes, adapted from original_source's
// tiny_ipc/fd.hpp.
package fdh

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Handle is a copyable file descriptor handle. All copies share one
// state: the first Close on any copy of an owning handle closes the
// underlying descriptor exactly once, and every copy then reports -1. A
// handle created with Borrow never closes the descriptor.
type Handle struct {
	ref *ref
}

type ref struct {
	mu     sync.Mutex
	fd     int
	owning bool
	closed bool
}

// Own wraps fd in an owning handle: the descriptor is closed exactly once,
// by the first Close on any copy of the returned Handle.
func Own(fd int) Handle {
	return Handle{ref: &ref{fd: fd, owning: true}}
}

// Borrow wraps fd in a non-owning handle: Close never closes the
// descriptor, it only marks the handle and its copies invalid; the caller
// keeps responsibility for the descriptor's lifetime. This mirrors the
// original's weak_ref mode.
func Borrow(fd int) Handle {
	return Handle{ref: &ref{fd: fd, owning: false}}
}

// Invalid returns the sentinel handle decoded when no descriptor is
// available.
func Invalid() Handle {
	return Handle{ref: &ref{fd: -1}}
}

// FD returns the underlying descriptor number, or -1 for an invalid
// handle.
func (h Handle) FD() int {
	if h.ref == nil {
		return -1
	}
	h.ref.mu.Lock()
	defer h.ref.mu.Unlock()
	if h.ref.closed {
		return -1
	}
	return h.ref.fd
}

// Valid reports whether the handle refers to an open descriptor.
func (h Handle) Valid() bool {
	return h.FD() >= 0
}

// Close releases the handle. For an owning handle the first Close on any
// copy closes the underlying descriptor; every copy shares the same *ref,
// so all of them are then marked closed and later Close calls are
// no-ops. There is no per-copy reference count.
func (h Handle) Close() error {
	if h.ref == nil {
		return nil
	}
	h.ref.mu.Lock()
	defer h.ref.mu.Unlock()
	if h.ref.closed || !h.ref.owning || h.ref.fd < 0 {
		h.ref.closed = true
		return nil
	}
	h.ref.closed = true
	return unix.Close(h.ref.fd)
}

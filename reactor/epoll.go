// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

//go:build linux

package reactor

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Epoll is the concrete Linux ReadinessSource adapter. Each OnReadable
// registration arms a one-shot epoll interest; the caller re-arms by
// calling OnReadable again, matching the dispatch loop's own "re-arm
// readiness" step between message processing rounds.
type Epoll struct {
	epfd int
	fd   int

	mu         sync.Mutex
	onReadable func()
	onError    func(error)

	closeOnce sync.Once
	closed    chan struct{}
}

// NewEpoll creates an epoll instance watching fd for readability.
func NewEpoll(fd int) (*Epoll, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: epoll_create1")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, errors.Wrap(err, "reactor: epoll_ctl add")
	}
	e := &Epoll{epfd: epfd, fd: fd, closed: make(chan struct{})}
	go e.loop()
	return e, nil
}

// OnReadable implements ReadinessSource.
func (e *Epoll) OnReadable(cb func()) {
	e.mu.Lock()
	e.onReadable = cb
	e.mu.Unlock()
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: int32(e.fd)}
	_ = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, e.fd, &ev)
}

// OnError implements ReadinessSource.
func (e *Epoll) OnError(cb func(error)) {
	e.mu.Lock()
	e.onError = cb
	e.mu.Unlock()
}

// Close implements ReadinessSource.
func (e *Epoll) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })
	return unix.Close(e.epfd)
}

func (e *Epoll) loop() {
	events := make([]unix.EpollEvent, 1)
	for {
		n, err := unix.EpollWait(e.epfd, events, -1)
		select {
		case <-e.closed:
			return
		default:
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			e.dispatchError(err)
			return
		}
		if n == 0 {
			continue
		}
		ev := events[0]
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			var sockErr error
			if ev.Events&unix.EPOLLERR != 0 {
				if v, gErr := unix.GetsockoptInt(e.fd, unix.SOL_SOCKET, unix.SO_ERROR); gErr == nil && v != 0 {
					sockErr = unix.Errno(v)
				}
			}
			e.dispatchError(sockErr)
			continue
		}
		if ev.Events&unix.EPOLLIN != 0 {
			e.dispatchReadable()
		}
	}
}

func (e *Epoll) dispatchReadable() {
	e.mu.Lock()
	cb := e.onReadable
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (e *Epoll) dispatchError(err error) {
	e.mu.Lock()
	cb := e.onError
	e.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

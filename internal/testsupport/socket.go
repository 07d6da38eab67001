// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package testsupport provides the small fixtures the package test
// suites share: unique socket paths and a connected client/server pair
// over a real Unix domain socket, using github.com/google/uuid to keep
// per-test socket paths from colliding.
package testsupport

import (
	"net"
	"path/filepath"

	"github.com/google/uuid"
)

// SocketPath returns a unique Unix socket path under the OS temp
// directory, suitable for one test's listener.
func SocketPath(t interface{ TempDir() string }) string {
	return filepath.Join(t.TempDir(), uuid.NewString()+".sock")
}

// Pair dials a fresh listener at path and returns the accepted server
// side and the dialed client side as connected *net.UnixConn values.
// The caller is responsible for closing both.
func Pair(path string) (client, server *net.UnixConn, err error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, err
	}
	defer ln.Close()

	accepted := make(chan *net.UnixConn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn.(*net.UnixConn)
	}()

	dialed, err := net.Dial("unix", path)
	if err != nil {
		return nil, nil, err
	}

	select {
	case srv := <-accepted:
		return dialed.(*net.UnixConn), srv, nil
	case err := <-acceptErr:
		dialed.Close()
		return nil, nil, err
	}
}

// MustPair is Pair but fails the calling test immediately on error.
func MustPair(t interface {
	TempDir() string
	Fatalf(format string, args ...interface{})
}) (client, server *net.UnixConn) {
	path := SocketPath(t)
	c, s, err := Pair(path)
	if err != nil {
		t.Fatalf("testsupport: Pair(%s): %v", path, err)
	}
	return c, s
}

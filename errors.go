// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package tinyipc

import "github.com/pkg/errors"

// ErrMalformed is the sentinel a dispatch loop reports when a decoder
// would read past the payload or a length prefix exceeds the remaining
// region. Such over-reads are unrecoverable and torn down through the
// same path as a transport error; missing ancillary items are a
// separate, non-fatal case that never reaches this sentinel, since they
// simply decode to a sentinel value instead.
var ErrMalformed = errors.New("tinyipc: malformed message")

// ErrClosed is returned by Invoke after Client.Close, and is handed to a
// Session's error handler when its readiness source reports an error
// without a system error (the peer closed its end).
var ErrClosed = errors.New("tinyipc: closed")

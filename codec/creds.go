// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package codec

import "math"

// Credentials is the (pid, uid, gid) tuple the kernel attaches to a
// SCM_CREDENTIALS control message for a local-socket peer.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// sentinelCreds is decoded when a message carries a credentials parameter
// but no SCM_CREDENTIALS control message arrived with it. All fields are
// set to the maximum value representable by their wire type.
var sentinelCreds = Credentials{
	PID: math.MaxInt32,
	UID: math.MaxUint32,
	GID: math.MaxUint32,
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package tai64n implements the 12-byte TAI64N timestamp used to bind
// freshness into a handshake initiation: 8 bytes of TAI seconds (offset by
// the epoch the TAI64 family defines) followed by 4 bytes of nanoseconds,
// both big-endian, compared lexicographically.
package tai64n

import (
	"encoding/binary"
	"time"
)

const TimestampSize = 12

const base = uint64(1<<62) + 10

type Timestamp [TimestampSize]byte

// Now returns the current time stamped as TAI64N.
func Now() Timestamp {
	return stamp(time.Now())
}

func stamp(t time.Time) (tai Timestamp) {
	secs := base + uint64(t.Unix())
	nano := uint32(t.Nanosecond())
	binary.BigEndian.PutUint64(tai[:8], secs)
	binary.BigEndian.PutUint32(tai[8:12], nano)
	return
}

// After reports whether ts is lexicographically (big-endian byte order)
// strictly greater than other — the monotonicity comparison the replay
// check relies on. It deliberately does not decode the fields into a
// time.Time: a byte-wise compare is what the wire format and the
// reference implementations actually do.
func (ts Timestamp) After(other Timestamp) bool {
	for i := 0; i < TimestampSize; i++ {
		if ts[i] > other[i] {
			return true
		}
		if ts[i] < other[i] {
			return false
		}
	}
	return false
}

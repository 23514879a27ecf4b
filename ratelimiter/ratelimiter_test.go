/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package ratelimiter

import (
	"testing"
	"time"
)

func TestPeerLimiterAllowsInitialBurst(t *testing.T) {
	p := NewPeerLimiter()
	now := time.Unix(1_700_000_000, 0)

	accepted := 0
	for i := 0; i < initiationsBurstable; i++ {
		if p.AllowAt(now) {
			accepted++
		}
	}
	if accepted != initiationsBurstable {
		t.Fatalf("expected the full burst of %d to be accepted at a single instant, got %d", initiationsBurstable, accepted)
	}
}

func TestPeerLimiterThrottlesPastBurst(t *testing.T) {
	p := NewPeerLimiter()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < initiationsBurstable; i++ {
		p.AllowAt(now)
	}

	if p.AllowAt(now) {
		t.Fatalf("expected the request immediately following a full burst to be throttled")
	}
}

func TestPeerLimiterRefillsOverTime(t *testing.T) {
	p := NewPeerLimiter()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < initiationsBurstable; i++ {
		p.AllowAt(now)
	}
	if p.AllowAt(now) {
		t.Fatalf("burst should be exhausted before the refill window")
	}

	later := now.Add(2 * time.Second)
	if !p.AllowAt(later) {
		t.Fatalf("expected a token to have refilled after waiting past the initiation rate")
	}
}

func TestPeerLimitersAreIndependentPerPeer(t *testing.T) {
	p1 := NewPeerLimiter()
	p2 := NewPeerLimiter()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < initiationsBurstable; i++ {
		p1.AllowAt(now)
	}
	if p1.AllowAt(now) {
		t.Fatalf("p1's burst should be exhausted")
	}
	if !p2.AllowAt(now) {
		t.Fatalf("p2's budget must not be affected by p1's traffic")
	}
}

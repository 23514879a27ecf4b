/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/northbridge-vpn/noisecore/tai64n"
)

func newTestPeer(t *testing.T) (*Device, *Peer) {
	t.Helper()
	d := NewDevice(NewLogger(LogLevelSilent, ""))
	sk, _ := newPrivateKey(rand.Reader)
	d.SetPrivateKey(sk)

	remoteSK, _ := newPrivateKey(rand.Reader)
	peer, err := d.NewPeer(remoteSK.publicKey())
	if err != nil {
		t.Fatalf("NewPeer: %v", err)
	}
	return d, peer
}

func TestPeerCheckReplayFloodAcceptsStrictlyIncreasing(t *testing.T) {
	_, peer := newTestPeer(t)

	if err := peer.checkReplayFlood(fakeTimestamp(100, 0)); err != nil {
		t.Fatalf("first timestamp unexpectedly rejected: %v", err)
	}
	if err := peer.checkReplayFlood(fakeTimestamp(101, 0)); err != nil {
		t.Fatalf("strictly later timestamp unexpectedly rejected: %v", err)
	}
}

func TestPeerCheckReplayFloodRejectsEqualOrEarlier(t *testing.T) {
	_, peer := newTestPeer(t)

	if err := peer.checkReplayFlood(fakeTimestamp(100, 0)); err != nil {
		t.Fatalf("first timestamp unexpectedly rejected: %v", err)
	}

	if err := peer.checkReplayFlood(fakeTimestamp(100, 0)); err == nil {
		t.Fatalf("expected equal timestamp to be rejected")
	} else {
		assertKind(t, err, ErrReplayOrStale)
	}

	if err := peer.checkReplayFlood(fakeTimestamp(99, 0)); err == nil {
		t.Fatalf("expected earlier timestamp to be rejected")
	} else {
		assertKind(t, err, ErrReplayOrStale)
	}
}

func TestPeerCheckReplayFloodDoesNotAdvanceOnRejection(t *testing.T) {
	_, peer := newTestPeer(t)

	if err := peer.checkReplayFlood(fakeTimestamp(100, 0)); err != nil {
		t.Fatalf("first timestamp unexpectedly rejected: %v", err)
	}
	peer.checkReplayFlood(fakeTimestamp(50, 0)) // rejected, must not move the bound

	if err := peer.checkReplayFlood(fakeTimestamp(101, 0)); err != nil {
		t.Fatalf("later timestamp rejected after a stale probe: %v", err)
	}
}

func TestPeerCheckReplayFloodEnforcesBudget(t *testing.T) {
	_, peer := newTestPeer(t)

	accepted := 0
	var ts tai64n.Timestamp
	for i := uint64(1); i <= 50; i++ {
		ts = fakeTimestamp(i, 0)
		if err := peer.checkReplayFlood(ts); err == nil {
			accepted++
		}
	}

	if accepted >= 50 {
		t.Fatalf("expected the per-peer flood budget to throttle a 50-initiation burst, got %d accepted", accepted)
	}
	if accepted == 0 {
		t.Fatalf("expected at least the initial burst allowance to be accepted")
	}
}

func TestPeerStringIsStableAndAbbreviated(t *testing.T) {
	_, peer := newTestPeer(t)

	s := peer.String()
	if !strings.HasPrefix(s, "peer(") || !strings.HasSuffix(s, ")") {
		t.Fatalf("unexpected peer.String() shape: %q", s)
	}
	if s != peer.String() {
		t.Fatalf("peer.String() is not stable across calls")
	}
}

func TestPeerRecomputeSharedSecretZeroesOnFailure(t *testing.T) {
	_, peer := newTestPeer(t)
	peer.pk = NoisePublicKey{} // the all-zero u-coordinate is a low-order point

	sk, _ := newPrivateKey(rand.Reader)
	if err := peer.recomputeSharedSecret(&sk); err == nil {
		t.Fatalf("expected recomputeSharedSecret against a zero public key to fail")
	}
	if !isZero(peer.ss[:]) {
		t.Fatalf("peer.ss not cleared after a failed recompute")
	}
}

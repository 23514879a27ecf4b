/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package ratelimiter implements the per-peer flood-protection budget a
// handshake engine needs but does not mandate a policy for: how many
// initiations a peer may present in a sliding window before they start
// getting rejected outright. The device package consults it only for
// initiations whose timestamp has already been decrypted and found fresh.
package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	initiationsPerSecond = 1
	initiationsBurstable = 5
)

// PeerLimiter is a single peer's token bucket. Identity is not known until
// after the static key inside an Initiation has been opened, so nothing
// can be keyed on source address at the point this check runs; unlike the
// teacher's table of address-keyed RatelimiterEntry values, one PeerLimiter
// is owned directly by the Peer it budgets and needs no map or garbage
// collection of its own.
type PeerLimiter struct {
	limiter *rate.Limiter
}

// NewPeerLimiter constructs a limiter allowing a steady rate of
// initiationsPerSecond with a burst of initiationsBurstable.
func NewPeerLimiter() *PeerLimiter {
	return &PeerLimiter{
		limiter: rate.NewLimiter(rate.Limit(initiationsPerSecond), initiationsBurstable),
	}
}

// Allow reports whether another initiation may be processed now. It never
// blocks.
func (p *PeerLimiter) Allow() bool {
	return p.limiter.Allow()
}

// AllowAt is Allow against an explicit clock, for deterministic tests.
func (p *PeerLimiter) AllowAt(now time.Time) bool {
	return p.limiter.AllowN(now, 1)
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"sync"

	"github.com/northbridge-vpn/noisecore/ratelimiter"
	"github.com/northbridge-vpn/noisecore/tai64n"
)

// Peer is a configured remote endpoint: its static public key, the
// static-static DH cached against the device's own private key, an
// optional pre-shared key, and the single mutable handshake slot the
// four transitions operate on. mu is the one peer-local exclusive lock
// named by the concurrency rules: every transition that touches
// handshake, lastTimestamp or limiter holds it for the duration of that
// transition and no longer.
type Peer struct {
	device *Device

	mu        sync.Mutex
	pk        NoisePublicKey
	ss        [NoisePublicKeySize]byte
	psk       NoisePresharedKey
	handshake Handshake

	lastTimestamp tai64n.Timestamp
	limiter       *ratelimiter.PeerLimiter
}

// NewPeer registers pk as a configured peer of device, precomputing the
// static-static DH. It fails if device's own private key is unset, if pk
// duplicates an already-configured peer, or if MaxPeers peers are already
// configured.
func (device *Device) NewPeer(pk NoisePublicKey) (*Peer, error) {
	device.staticIdentity.RLock()
	defer device.staticIdentity.RUnlock()

	if device.staticIdentity.privateKey.IsZero() {
		return nil, newHandshakeError(ErrInvalidState, "device has no private key configured")
	}

	device.peers.Lock()
	defer device.peers.Unlock()

	if _, ok := device.peers.keyMap[pk]; ok {
		return nil, newHandshakeError(ErrInvalidState, "adding already-configured peer")
	}
	if len(device.peers.keyMap) >= MaxPeers {
		return nil, newHandshakeError(ErrInvalidState, "too many peers")
	}

	peer := &Peer{
		device:  device,
		pk:      pk,
		limiter: ratelimiter.NewPeerLimiter(),
	}

	ss, err := device.staticIdentity.privateKey.sharedSecret(pk)
	if err != nil {
		return nil, err
	}
	peer.ss = ss

	device.peers.keyMap[pk] = peer
	device.log.Verbosef("%v - new peer", peer)

	return peer, nil
}

// recomputeSharedSecret re-derives ss against the device's current private
// key. Called by Device.SetPrivateKey for every configured peer whenever
// the local static key changes.
func (peer *Peer) recomputeSharedSecret(sk *NoisePrivateKey) error {
	peer.mu.Lock()
	defer peer.mu.Unlock()

	ss, err := sk.sharedSecret(peer.pk)
	if err != nil {
		setZero(peer.ss[:])
		return err
	}
	peer.ss = ss
	return nil
}

// checkReplayFlood enforces strict monotonicity of the initiation
// timestamp against the stored lower bound, then the per-peer flood
// budget, in that order. It commits lastTimestamp on success before
// returning, deliberately before CreateMessageResponse runs: the
// initiator has already been authenticated by the timestamp AEAD by the
// time this is called, so a later failure in CreateMessageResponse still
// consumes the slot.
func (peer *Peer) checkReplayFlood(ts tai64n.Timestamp) error {
	peer.mu.Lock()
	defer peer.mu.Unlock()

	if !ts.After(peer.lastTimestamp) {
		return newHandshakeError(ErrReplayOrStale, "initiation timestamp not after last accepted")
	}
	if !peer.limiter.Allow() {
		return newHandshakeError(ErrFloodLimited, "per-peer initiation budget exhausted")
	}
	peer.lastTimestamp = ts
	return nil
}

// String renders an abbreviated, log-safe identifier for the peer: the
// first and last three bytes of its static public key, base64-encoded.
func (peer *Peer) String() string {
	src := peer.pk

	b64 := func(input byte) byte {
		return input + 'A' + byte(((25-int(input))>>8)&6) - byte(((51-int(input))>>8)&75) - byte(((61-int(input))>>8)&15) + byte(((62-int(input))>>8)&3)
	}

	b := []byte("peer(____…____)")
	const first = len("peer(")
	const second = len("peer(____…")

	b[first+0] = b64((src[0] >> 2) & 63)
	b[first+1] = b64(((src[0] << 4) | (src[1] >> 4)) & 63)
	b[first+2] = b64(((src[1] << 2) | (src[2] >> 6)) & 63)
	b[first+3] = b64(src[2] & 63)

	b[second+0] = b64(src[29] & 63)
	b[second+1] = b64((src[30] >> 2) & 63)
	b[second+2] = b64(((src[30] << 4) | (src[31] >> 4)) & 63)
	b[second+3] = b64((src[31] << 2) & 63)

	return string(b)
}

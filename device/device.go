/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package device implements the Noise_IKpsk2_25519_ChaChaPoly_BLAKE2s
// handshake engine: a Device holds one local static keypair and a set of
// configured Peers, and exposes the four handshake transitions as methods
// on Device. It never opens a socket, owns a TUN device, or parses a
// command line — those belong to a transport layer built on top of this
// package.
package device

import (
	"sync"

	"github.com/northbridge-vpn/noisecore/tai64n"
)

// MaxPeers bounds the peer map against unbounded configuration growth.
const MaxPeers = 1 << 20

// Device is the local endpoint identity plus the registry of configured
// peers. staticIdentity and peers are each guarded by their own lock. A
// Peer's lock may be taken while one of these is held (SetPrivateKey and
// peer removal do so), but never the other way round, so the lock order
// is always device lock → peer lock.
type Device struct {
	staticIdentity struct {
		sync.RWMutex
		privateKey NoisePrivateKey
		publicKey  NoisePublicKey
	}

	peers struct {
		sync.RWMutex
		keyMap map[NoisePublicKey]*Peer
	}

	indexTable IndexTable
	log        *Logger
}

// NewDevice constructs a Device with no private key and no peers. Call
// SetPrivateKey before adding peers; NewPeer fails ErrInvalidState while
// the private key is zero, so no handshake can be started until then.
func NewDevice(logger *Logger) *Device {
	device := new(Device)
	device.log = logger
	device.peers.keyMap = make(map[NoisePublicKey]*Peer)
	device.indexTable.Init()
	return device
}

// SetPrivateKey installs sk as the device's static private key,
// recomputing every configured peer's static-static DH against it. Peers
// whose public key would equal the new public key (self-peering) are
// removed instead.
func (device *Device) SetPrivateKey(sk NoisePrivateKey) error {
	device.staticIdentity.Lock()
	defer device.staticIdentity.Unlock()

	if sk.Equals(device.staticIdentity.privateKey) {
		return nil
	}

	publicKey := sk.publicKey()

	device.peers.Lock()
	defer device.peers.Unlock()

	for key, peer := range device.peers.keyMap {
		if peer.pk.Equals(publicKey) {
			device.removePeerLocked(key)
		}
	}

	device.staticIdentity.privateKey = sk
	device.staticIdentity.publicKey = publicKey

	for _, peer := range device.peers.keyMap {
		if err := peer.recomputeSharedSecret(&sk); err != nil {
			device.log.Errorf("%v - failed to recompute shared secret: %v", peer, err)
		}
	}

	return nil
}

// PublicKey returns the device's current static public key.
func (device *Device) PublicKey() NoisePublicKey {
	device.staticIdentity.RLock()
	defer device.staticIdentity.RUnlock()
	return device.staticIdentity.publicKey
}

// LookupPeer returns the configured peer for pk, or nil.
func (device *Device) LookupPeer(pk NoisePublicKey) *Peer {
	device.peers.RLock()
	defer device.peers.RUnlock()
	return device.peers.keyMap[pk]
}

// removePeerLocked requires device.peers to already be held for writing.
func (device *Device) removePeerLocked(key NoisePublicKey) {
	peer, ok := device.peers.keyMap[key]
	if !ok {
		return
	}
	peer.mu.Lock()
	device.indexTable.Delete(peer.handshake.localIndex)
	peer.handshake.clear()
	peer.mu.Unlock()
	delete(device.peers.keyMap, key)
}

// RemovePeer removes the configured peer for key, if any, zeroing its
// in-flight handshake secrets.
func (device *Device) RemovePeer(key NoisePublicKey) {
	device.peers.Lock()
	defer device.peers.Unlock()
	device.removePeerLocked(key)
}

// RemoveAllPeers removes every configured peer.
func (device *Device) RemoveAllPeers() {
	device.peers.Lock()
	defer device.peers.Unlock()

	for key := range device.peers.keyMap {
		device.removePeerLocked(key)
	}
}

// tai64nNow is the clock CreateMessageInitiation stamps initiations with.
// It is tai64n.Now unless a test overrides it with a fixed clock.
var tai64nNow = tai64n.Now

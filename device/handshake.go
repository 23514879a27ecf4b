/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"io"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/northbridge-vpn/noisecore/tai64n"
)

type handshakeState int

const (
	handshakeReset handshakeState = iota
	handshakeInitiationSent
)

// Handshake is the per-peer handshake slot. Reset carries no secrets at
// all (everything below is zeroed); InitiationSent carries the running
// transcript, chaining key, ephemeral private key and the sender id the
// initiator embedded in the frame it is waiting on a response to.
type Handshake struct {
	state          handshakeState
	hash           [blake2s.Size]byte
	chainKey       [blake2s.Size]byte
	localEphemeral NoisePrivateKey
	localIndex     uint32
}

// clear zeroes every secret field and returns the handshake to Reset. It
// is the only place InitiationSent's secrets are released.
func (h *Handshake) clear() {
	setZero(h.localEphemeral[:])
	setZero(h.hash[:])
	setZero(h.chainKey[:])
	h.localIndex = 0
	h.state = handshakeReset
}

// Transient is the responder-side state ConsumeMessageInitiation hands to
// CreateMessageResponse. It is deliberately not persisted on the Peer:
// ConsumeMessageInitiation commits no handshake state other than the
// replay/flood bookkeeping, so identity-hiding failures and an eventual
// CreateMessageResponse failure never leave stray state behind.
type Transient struct {
	receiver        uint32
	remoteEphemeral NoisePublicKey
	hash            [blake2s.Size]byte
	chainKey        [blake2s.Size]byte
}

// Zero overwrites the transcript secrets carried by a Transient that is
// being discarded without reaching CreateMessageResponse.
func (t *Transient) Zero() {
	setZero(t.hash[:])
	setZero(t.chainKey[:])
}

// CreateMessageInitiation binds the responder's static key first
// (identity-hiding requires the initiator to commit to who it thinks it's
// talking to before it proves anything about itself), generates a fresh
// ephemeral, seals the initiator's own static key under the
// ephemeral-static DH, then seals a fresh TAI64N timestamp under the
// precomputed static-static DH. A fresh call while the peer is already
// InitiationSent discards the previous ephemeral.
func (device *Device) CreateMessageInitiation(rng io.Reader, peer *Peer) (*MessageInitiation, error) {
	device.staticIdentity.RLock()
	defer device.staticIdentity.RUnlock()

	index := device.indexTable.NewIndex(peer)

	peer.mu.Lock()
	defer peer.mu.Unlock()

	device.indexTable.Delete(peer.handshake.localIndex)

	hs := InitialHash
	ck := InitialChainKey
	HASH(&hs, &hs, peer.pk[:])

	ephSK, err := newPrivateKey(rng)
	if err != nil {
		device.indexTable.Delete(index)
		return nil, err
	}
	ephPK := ephSK.publicKey()

	msg := &MessageInitiation{
		Type:      MessageInitiationType,
		Sender:    index,
		Ephemeral: ephPK,
	}

	KDF1(&ck, msg.Ephemeral[:])
	HASH(&hs, &hs, msg.Ephemeral[:])

	ss, err := ephSK.sharedSecret(peer.pk)
	if err != nil {
		device.indexTable.Delete(index)
		return nil, err
	}
	var key [chacha20poly1305.KeySize]byte
	KDF2(&ck, &key, ss[:])
	setZero(ss[:])
	handshakeSeal(msg.Static[:], &key, hs[:], device.staticIdentity.publicKey[:])
	HASH(&hs, &hs, msg.Static[:])

	if isZero(peer.ss[:]) {
		device.indexTable.Delete(index)
		return nil, errInvalidPublicKey
	}
	KDF2(&ck, &key, peer.ss[:])
	timestamp := tai64nNow()
	handshakeSeal(msg.Timestamp[:], &key, hs[:], timestamp[:])
	HASH(&hs, &hs, msg.Timestamp[:])
	setZero(key[:])

	device.indexTable.Delete(peer.handshake.localIndex)
	peer.handshake.clear()
	peer.handshake.hash = hs
	peer.handshake.chainKey = ck
	peer.handshake.localEphemeral = ephSK
	peer.handshake.localIndex = index
	peer.handshake.state = handshakeInitiationSent

	return msg, nil
}

// ConsumeMessageInitiation is the only operation that turns a ciphertext
// into a peer identity: the candidate static public key opened from
// msg.Static is looked up in the device's pk index, and a non-match fails
// ErrUnknownPeer. No peer handshake state is committed here; only the
// replay/flood bookkeeping (lastTimestamp) is, and only after the
// timestamp AEAD has authenticated the sender.
func (device *Device) ConsumeMessageInitiation(msg *MessageInitiation) (*Peer, *Transient, error) {
	if msg.Type != MessageInitiationType {
		return nil, nil, newHandshakeError(ErrMalformedMessage, "not an initiation message")
	}

	device.staticIdentity.RLock()
	defer device.staticIdentity.RUnlock()

	hs := InitialHash
	ck := InitialChainKey
	HASH(&hs, &hs, device.staticIdentity.publicKey[:])
	HASH(&hs, &hs, msg.Ephemeral[:])
	KDF1(&ck, msg.Ephemeral[:])

	ss, err := device.staticIdentity.privateKey.sharedSecret(msg.Ephemeral)
	if err != nil {
		return nil, nil, errDecryptionFailure
	}
	var key [chacha20poly1305.KeySize]byte
	KDF2(&ck, &key, ss[:])
	setZero(ss[:])

	var peerPKBytes [NoisePublicKeySize]byte
	if err := handshakeOpen(peerPKBytes[:], &key, hs[:], msg.Static[:]); err != nil {
		return nil, nil, err
	}
	peerPK := NoisePublicKey(peerPKBytes)
	HASH(&hs, &hs, msg.Static[:])

	peer := device.LookupPeer(peerPK)
	if peer == nil {
		return nil, nil, newHandshakeError(ErrUnknownPeer, "no peer for presented static key")
	}

	KDF2(&ck, &key, peer.ss[:])
	var timestamp tai64n.Timestamp
	if err := handshakeOpen(timestamp[:], &key, hs[:], msg.Timestamp[:]); err != nil {
		return nil, nil, err
	}
	setZero(key[:])
	HASH(&hs, &hs, msg.Timestamp[:])

	if err := peer.checkReplayFlood(timestamp); err != nil {
		return nil, nil, err
	}

	return peer, &Transient{
		receiver:        msg.Sender,
		remoteEphemeral: msg.Ephemeral,
		hash:            hs,
		chainKey:        ck,
	}, nil
}

// CreateMessageResponse consumes the Transient returned by
// ConsumeMessageInitiation, finishes the 3-DH and mixes in the pre-shared
// key, and returns the unconfirmed key-pair alongside the response frame.
func (device *Device) CreateMessageResponse(rng io.Reader, peer *Peer, transient *Transient) (*MessageResponse, *KeyPair, error) {
	index := device.indexTable.NewIndex(peer)

	msg := &MessageResponse{
		Type:     MessageResponseType,
		Sender:   index,
		Receiver: transient.receiver,
	}

	hs := transient.hash
	ck := transient.chainKey

	ephSK, err := newPrivateKey(rng)
	if err != nil {
		device.indexTable.Delete(index)
		return nil, nil, err
	}
	msg.Ephemeral = ephSK.publicKey()
	KDF1(&ck, msg.Ephemeral[:])
	HASH(&hs, &hs, msg.Ephemeral[:])

	ss, err := ephSK.sharedSecret(transient.remoteEphemeral)
	if err != nil {
		device.indexTable.Delete(index)
		return nil, nil, err
	}
	KDF1(&ck, ss[:])
	setZero(ss[:])

	ss, err = ephSK.sharedSecret(peer.pk)
	if err != nil {
		device.indexTable.Delete(index)
		return nil, nil, err
	}
	KDF1(&ck, ss[:])
	setZero(ss[:])
	setZero(ephSK[:])

	var tau [blake2s.Size]byte
	var key [chacha20poly1305.KeySize]byte
	KDF3(&ck, &tau, &key, peer.psk[:])
	HASH(&hs, &hs, tau[:])
	setZero(tau[:])

	handshakeSeal(msg.Empty[:], &key, hs[:], nil)
	setZero(key[:])

	// KDF2 hands back its first output as the mutated chaining key and its
	// second as the explicit out-param; the responder takes (recv, send)
	// in that order, the initiator the reverse (see ConsumeMessageResponse).
	var sendKey, recvKey [blake2s.Size]byte
	KDF2(&ck, &sendKey, nil)
	recvKey = ck
	setZero(hs[:])
	setZero(ck[:])

	kp := &KeyPair{
		Confirmed: false,
		Send:      SessionKey{ID: msg.Sender, Key: sendKey},
		Recv:      SessionKey{ID: msg.Receiver, Key: recvKey},
	}
	setZero(sendKey[:])
	setZero(recvKey[:])

	return msg, kp, nil
}

// ConsumeMessageResponse locates the peer by the id the device allocated
// in CreateMessageInitiation (identity is proven by possession of that id,
// not by a second public-key lookup); the peer must be InitiationSent or
// this fails ErrInvalidState. On success the handshake returns to Reset
// and its ephemeral is zeroed.
func (device *Device) ConsumeMessageResponse(msg *MessageResponse) (*Peer, *KeyPair, error) {
	if msg.Type != MessageResponseType {
		return nil, nil, newHandshakeError(ErrMalformedMessage, "not a response message")
	}

	peer := device.indexTable.Lookup(msg.Receiver)
	if peer == nil {
		return nil, nil, newHandshakeError(ErrUnknownID, "no live handshake for receiver id %d", msg.Receiver)
	}

	device.staticIdentity.RLock()
	defer device.staticIdentity.RUnlock()

	peer.mu.Lock()
	defer peer.mu.Unlock()

	if peer.handshake.state != handshakeInitiationSent {
		return nil, nil, newHandshakeError(ErrInvalidState, "consume_response arrived while peer is Reset")
	}

	hs := peer.handshake.hash
	ck := peer.handshake.chainKey
	sender := peer.handshake.localIndex
	ephSK := peer.handshake.localEphemeral

	KDF1(&ck, msg.Ephemeral[:])
	HASH(&hs, &hs, msg.Ephemeral[:])

	ss, err := ephSK.sharedSecret(msg.Ephemeral)
	if err != nil {
		return nil, nil, errDecryptionFailure
	}
	KDF1(&ck, ss[:])
	setZero(ss[:])

	ss, err = device.staticIdentity.privateKey.sharedSecret(msg.Ephemeral)
	if err != nil {
		return nil, nil, errDecryptionFailure
	}
	KDF1(&ck, ss[:])
	setZero(ss[:])

	var tau [blake2s.Size]byte
	var key [chacha20poly1305.KeySize]byte
	KDF3(&ck, &tau, &key, peer.psk[:])
	HASH(&hs, &hs, tau[:])
	setZero(tau[:])

	if err := handshakeOpen(nil, &key, hs[:], msg.Empty[:]); err != nil {
		setZero(key[:])
		return nil, nil, err
	}
	setZero(key[:])

	// KDF2's mutated chaining key and explicit out-param are taken in the
	// opposite order from the responder's CreateMessageResponse (recv,
	// send there; send, recv here). That swap is what makes the
	// initiator's send key equal the responder's recv key and vice versa.
	var sendKey, recvKey [blake2s.Size]byte
	KDF2(&ck, &recvKey, nil)
	sendKey = ck

	device.indexTable.Delete(peer.handshake.localIndex)
	peer.handshake.clear()

	kp := &KeyPair{
		Confirmed: true,
		Send:      SessionKey{ID: sender, Key: sendKey},
		Recv:      SessionKey{ID: msg.Sender, Key: recvKey},
	}
	setZero(sendKey[:])
	setZero(recvKey[:])

	return peer, kp, nil
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// SessionKey is a transport-layer ChaCha20-Poly1305 key tagged with the
// 32-bit identifier the *other* side will stamp into packets routed to it
// under this key. The core hands SessionKeys to the transport layer and
// keeps no copy of its own past the call that produced it: installing an
// AEAD cipher.AEAD instance, a send nonce counter and a replay window over
// this key belongs to the transport-data layer, not the handshake engine.
type SessionKey struct {
	ID  uint32
	Key [chacha20poly1305.KeySize]byte
}

// KeyPair is the pair of session keys a completed or half-completed
// handshake yields. Confirmed is false for the pair CreateMessageResponse
// hands back (the responder has not yet seen an authenticated message
// under it) and true for the pair ConsumeMessageResponse hands back — the
// transport layer is responsible for flipping the responder's own pair to
// confirmed once it decrypts a first transport-data message.
type KeyPair struct {
	BirthTime time.Time
	Confirmed bool
	Send      SessionKey
	Recv      SessionKey
}

// Zero overwrites both session keys with zero bytes.
func (kp *KeyPair) Zero() {
	setZero(kp.Send.Key[:])
	setZero(kp.Recv.Key[:])
}

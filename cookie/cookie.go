/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package cookie implements the MAC1/MAC2 DoS-mitigation collaborator:
// a stateless proof that a peer presenting an Initiation or Response
// controls the source address it claims to, issued under load without
// committing any per-source state. It is a collaborator of the handshake
// core, not part of it — nothing in this package is imported by the core,
// and nothing in the core imports it; an integrator wires CheckMAC1/
// CheckMAC2/CreateReply in front of ConsumeMessageInitiation itself.
package cookie

import (
	"crypto/hmac"
	"crypto/rand"
	"sync"
	"time"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	labelMAC1   = "mac1----"
	labelCookie = "cookie--"

	// RefreshTime is how long a generated cookie, or a checker's mac2
	// secret, remains valid before it must be rotated.
	RefreshTime = 2 * time.Minute

	PublicKeySize = 32
	NonceSize     = chacha20poly1305.NonceSizeX
	ReplySize     = 4 + 4 + NonceSize + blake2s.Size128 + chacha20poly1305.Overhead
)

// Reply is the wire layout of a cookie reply frame: a bare type+receiver
// header (no MAC1/MAC2 trailer of its own — a cookie reply is never
// itself cookie-checked) followed by an XChaCha20-Poly1305-sealed cookie.
type Reply struct {
	Type     uint32
	Receiver uint32
	Nonce    [NonceSize]byte
	Cookie   [blake2s.Size128 + chacha20poly1305.Overhead]byte
}

// Checker is held by the side issuing cookies: it verifies MAC1/MAC2 on
// inbound frames and mints Reply frames while under load.
type Checker struct {
	mu   sync.RWMutex
	mac1 struct {
		key [blake2s.Size]byte
	}
	mac2 struct {
		secret        [blake2s.Size]byte
		secretSet     time.Time
		encryptionKey [chacha20poly1305.KeySize]byte
	}
}

// Generator is held by the side attaching MAC1/MAC2 to outbound frames
// and consuming cookie replies.
type Generator struct {
	mu   sync.RWMutex
	mac1 struct {
		key [blake2s.Size]byte
	}
	mac2 struct {
		cookie        [blake2s.Size128]byte
		cookieSet     time.Time
		hasLastMAC1   bool
		lastMAC1      [blake2s.Size128]byte
		encryptionKey [chacha20poly1305.KeySize]byte
	}
}

func deriveKeys(pk [PublicKeySize]byte) (mac1Key, cookieKey [blake2s.Size]byte) {
	h, _ := blake2s.New256(nil)
	h.Write([]byte(labelMAC1))
	h.Write(pk[:])
	h.Sum(mac1Key[:0])
	h.Reset()
	h.Write([]byte(labelCookie))
	h.Write(pk[:])
	h.Sum(cookieKey[:0])
	return
}

// Init (re)derives the checker's MAC1 and MAC2 keys from the local
// static public key pk. Call again whenever the local static key
// changes.
func (c *Checker) Init(pk [PublicKeySize]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mac1.key, c.mac2.encryptionKey = deriveKeys(pk)
	c.mac2.secretSet = time.Time{}
}

// CheckMAC1 verifies the MAC1 trailer of msg (the final 32 bytes of which
// are MAC1 followed by MAC2).
func (c *Checker) CheckMAC1(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	smac2 := len(msg) - blake2s.Size128
	smac1 := smac2 - blake2s.Size128

	var mac1 [blake2s.Size128]byte
	mac, _ := blake2s.New128(c.mac1.key[:])
	mac.Write(msg[:smac1])
	mac.Sum(mac1[:0])

	return hmac.Equal(mac1[:], msg[smac1:smac2])
}

// CheckMAC2 verifies the MAC2 trailer of msg given the source address src
// it was bound to. It always fails once the secret backing it is older
// than RefreshTime.
func (c *Checker) CheckMAC2(msg, src []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if time.Since(c.mac2.secretSet) > RefreshTime {
		return false
	}

	var cookie [blake2s.Size128]byte
	mac, _ := blake2s.New128(c.mac2.secret[:])
	mac.Write(src)
	mac.Sum(cookie[:0])

	smac2 := len(msg) - blake2s.Size128
	var mac2 [blake2s.Size128]byte
	mac, _ = blake2s.New128(cookie[:])
	mac.Write(msg[:smac2])
	mac.Sum(mac2[:0])

	return hmac.Equal(mac2[:], msg[smac2:])
}

// CreateReply mints a Reply binding a fresh cookie to src, rotating the
// checker's secret first if it has aged past RefreshTime. msg's MAC1
// field (the 16 bytes just before the trailing 16-byte MAC2) is bound in as
// associated data so the reply can only satisfy the request it answers.
func (c *Checker) CreateReply(msg []byte, receiver uint32, src []byte, replyType uint32) (*Reply, error) {
	c.mu.RLock()
	if time.Since(c.mac2.secretSet) > RefreshTime {
		c.mu.RUnlock()
		c.mu.Lock()
		if _, err := rand.Read(c.mac2.secret[:]); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.mac2.secretSet = time.Now()
		c.mu.Unlock()
		c.mu.RLock()
	}
	defer c.mu.RUnlock()

	var cookie [blake2s.Size128]byte
	mac, _ := blake2s.New128(c.mac2.secret[:])
	mac.Write(src)
	mac.Sum(cookie[:0])

	smac2 := len(msg) - blake2s.Size128
	smac1 := smac2 - blake2s.Size128

	reply := &Reply{Type: replyType, Receiver: receiver}
	if _, err := rand.Read(reply.Nonce[:]); err != nil {
		return nil, err
	}

	aead, _ := chacha20poly1305.NewX(c.mac2.encryptionKey[:])
	aead.Seal(reply.Cookie[:0], reply.Nonce[:], cookie[:], msg[smac1:smac2])

	return reply, nil
}

// Init (re)derives the generator's MAC1 and MAC2 keys from the remote
// peer's static public key pk.
func (g *Generator) Init(pk [PublicKeySize]byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mac1.key, g.mac2.encryptionKey = deriveKeys(pk)
	g.mac2.cookieSet = time.Time{}
}

// ConsumeReply decrypts reply against the MAC1 this generator most
// recently stamped, adopting the enclosed cookie on success.
func (g *Generator) ConsumeReply(reply *Reply) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.mac2.hasLastMAC1 {
		return false
	}

	var cookie [blake2s.Size128]byte
	aead, _ := chacha20poly1305.NewX(g.mac2.encryptionKey[:])
	if _, err := aead.Open(cookie[:0], reply.Nonce[:], reply.Cookie[:], g.mac2.lastMAC1[:]); err != nil {
		return false
	}

	g.mac2.cookieSet = time.Now()
	g.mac2.cookie = cookie
	return true
}

// AddMacs stamps MAC1 over msg[:len(msg)-32], then MAC2 over
// msg[:len(msg)-16] if a cookie adopted within RefreshTime is available.
// msg's final 32 bytes are the MAC1||MAC2 trailer this writes into.
func (g *Generator) AddMacs(msg []byte) {
	smac2 := len(msg) - blake2s.Size128
	smac1 := smac2 - blake2s.Size128
	mac1 := msg[smac1:smac2]
	mac2 := msg[smac2:]

	g.mu.Lock()
	defer g.mu.Unlock()

	mac, _ := blake2s.New128(g.mac1.key[:])
	mac.Write(msg[:smac1])
	mac.Sum(mac1[:0])
	copy(g.mac2.lastMAC1[:], mac1)
	g.mac2.hasLastMAC1 = true

	if time.Since(g.mac2.cookieSet) > RefreshTime {
		return
	}

	mac, _ = blake2s.New128(g.mac2.cookie[:])
	mac.Write(msg[:smac2])
	mac.Sum(mac2[:0])
}

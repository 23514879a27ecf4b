/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import (
	"crypto/rand"
	"testing"
)

func randomPK(t *testing.T) [PublicKeySize]byte {
	t.Helper()
	var pk [PublicKeySize]byte
	if _, err := rand.Read(pk[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return pk
}

func TestCheckMAC1RoundTrip(t *testing.T) {
	pk := randomPK(t)

	var c Checker
	c.Init(pk)
	var g Generator
	g.Init(pk)

	msg := make([]byte, 148)
	rand.Read(msg[:116])
	g.AddMacs(msg)

	if !c.CheckMAC1(msg) {
		t.Fatalf("CheckMAC1 rejected a message stamped by the matching generator")
	}

	msg[0] ^= 0x01
	if c.CheckMAC1(msg) {
		t.Fatalf("CheckMAC1 accepted a message tampered with after stamping")
	}
}

func TestCheckMAC1RequiresMatchingKey(t *testing.T) {
	pkA := randomPK(t)
	pkB := randomPK(t)

	var c Checker
	c.Init(pkA)
	var g Generator
	g.Init(pkB)

	msg := make([]byte, 148)
	rand.Read(msg[:116])
	g.AddMacs(msg)

	if c.CheckMAC1(msg) {
		t.Fatalf("CheckMAC1 accepted a message stamped under the wrong static key")
	}
}

func TestCreateReplyConsumeReplyRoundTrip(t *testing.T) {
	pk := randomPK(t)

	var c Checker
	c.Init(pk)
	var g Generator
	g.Init(pk)

	msg := make([]byte, 148)
	rand.Read(msg[:116])
	g.AddMacs(msg)

	reply, err := c.CreateReply(msg, 0xdeadbeef, []byte("198.51.100.1:51820"), 3)
	if err != nil {
		t.Fatalf("CreateReply: %v", err)
	}
	if reply.Receiver != 0xdeadbeef || reply.Type != 3 {
		t.Fatalf("Reply header mismatch: %+v", reply)
	}

	if !g.ConsumeReply(reply) {
		t.Fatalf("ConsumeReply rejected a reply answering the generator's own last MAC1")
	}
}

func TestConsumeReplyRejectsWithoutPriorAddMacs(t *testing.T) {
	pk := randomPK(t)
	var g Generator
	g.Init(pk)

	reply := &Reply{Receiver: 1}
	if g.ConsumeReply(reply) {
		t.Fatalf("ConsumeReply accepted a reply with no outstanding MAC1 to bind to")
	}
}

func TestCheckMAC2RequiresFreshCookie(t *testing.T) {
	pk := randomPK(t)

	var c Checker
	c.Init(pk)
	var g Generator
	g.Init(pk)

	src := []byte("198.51.100.1:51820")

	msg := make([]byte, 148)
	rand.Read(msg[:116])
	g.AddMacs(msg) // mac1 only; no adopted cookie yet

	if c.CheckMAC2(msg, src) {
		t.Fatalf("CheckMAC2 accepted a message with no cookie-derived mac2 present")
	}

	reply, err := c.CreateReply(msg, 0, src, 3)
	if err != nil {
		t.Fatalf("CreateReply: %v", err)
	}
	if !g.ConsumeReply(reply) {
		t.Fatalf("ConsumeReply: expected success")
	}

	g.AddMacs(msg) // now stamps mac2 using the adopted cookie
	if !c.CheckMAC2(msg, src) {
		t.Fatalf("CheckMAC2 rejected a message stamped with the checker's own issued cookie")
	}
}

func TestCheckMAC2BoundToSourceAddress(t *testing.T) {
	pk := randomPK(t)

	var c Checker
	c.Init(pk)
	var g Generator
	g.Init(pk)

	src := []byte("198.51.100.1:51820")
	otherSrc := []byte("203.0.113.7:51820")

	msg := make([]byte, 148)
	rand.Read(msg[:116])
	g.AddMacs(msg)

	reply, err := c.CreateReply(msg, 0, src, 3)
	if err != nil {
		t.Fatalf("CreateReply: %v", err)
	}
	g.ConsumeReply(reply)
	g.AddMacs(msg)

	if c.CheckMAC2(msg, otherSrc) {
		t.Fatalf("CheckMAC2 accepted a cookie issued for a different source address")
	}
}

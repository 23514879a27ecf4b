/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"crypto/rand"
	"testing"
)

func TestMessageInitiationRoundTrip(t *testing.T) {
	var want MessageInitiation
	want.Type = MessageInitiationType
	want.Sender = 0xdeadbeef
	rand.Read(want.Ephemeral[:])
	rand.Read(want.Static[:])
	rand.Read(want.Timestamp[:])
	rand.Read(want.MAC1[:])
	rand.Read(want.MAC2[:])

	buf := make([]byte, MessageInitiationSize)
	if err := want.marshal(buf); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got MessageInitiation
	if err := got.unmarshal(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestMessageInitiationRejectsWrongType(t *testing.T) {
	var msg MessageInitiation
	msg.Type = MessageResponseType
	buf := make([]byte, MessageInitiationSize)
	msg.marshal(buf)

	var got MessageInitiation
	if err := got.unmarshal(buf); err == nil {
		t.Fatalf("expected type mismatch error, got nil")
	}
}

func TestMessageInitiationRejectsWrongLength(t *testing.T) {
	var msg MessageInitiation
	if err := msg.unmarshal(make([]byte, MessageInitiationSize-1)); err == nil {
		t.Fatalf("expected length mismatch error, got nil")
	}
}

func TestMessageResponseRoundTrip(t *testing.T) {
	var want MessageResponse
	want.Type = MessageResponseType
	want.Sender = 1
	want.Receiver = 2
	rand.Read(want.Ephemeral[:])
	rand.Read(want.Empty[:])
	rand.Read(want.MAC1[:])
	rand.Read(want.MAC2[:])

	buf := make([]byte, MessageResponseSize)
	if err := want.marshal(buf); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got MessageResponse
	if err := got.unmarshal(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestMessageResponseRejectsWrongType(t *testing.T) {
	var msg MessageResponse
	msg.Type = MessageInitiationType
	buf := make([]byte, MessageResponseSize)
	msg.marshal(buf)

	var got MessageResponse
	if err := got.unmarshal(buf); err == nil {
		t.Fatalf("expected type mismatch error, got nil")
	}
}

func TestMessageTypeIgnoresUpperThreeBytes(t *testing.T) {
	var msg MessageInitiation
	msg.Type = MessageInitiationType | 0xabcd0000
	buf := make([]byte, MessageInitiationSize)
	msg.marshal(buf)

	var got MessageInitiation
	if err := got.unmarshal(buf); err != nil {
		t.Fatalf("unexpected error with nonzero upper type bytes: %v", err)
	}
}

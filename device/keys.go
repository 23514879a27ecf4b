/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

const (
	NoisePublicKeySize    = 32
	NoisePrivateKeySize   = 32
	NoisePresharedKeySize = 32
)

type (
	NoisePublicKey    [NoisePublicKeySize]byte
	NoisePrivateKey   [NoisePrivateKeySize]byte
	NoisePresharedKey [NoisePresharedKeySize]byte
)

var errInvalidPublicKey = errors.New("invalid public key")

func (sk *NoisePrivateKey) clamp() {
	sk[0] &= 248
	sk[31] = (sk[31] & 127) | 64
}

// newPrivateKey draws a fresh X25519 scalar from rng, clamped per RFC 7748.
func newPrivateKey(rng io.Reader) (sk NoisePrivateKey, err error) {
	_, err = io.ReadFull(rng, sk[:])
	if err != nil {
		return
	}
	sk.clamp()
	return
}

// NewPrivateKey draws a fresh, correctly clamped X25519 static private key
// from rng. Integrators generating a device's long-term identity should use
// this rather than hand-rolling clamping themselves.
func NewPrivateKey(rng io.Reader) (NoisePrivateKey, error) {
	return newPrivateKey(rng)
}

func (sk *NoisePrivateKey) publicKey() (pk NoisePublicKey) {
	apk := (*[NoisePublicKeySize]byte)(&pk)
	ask := (*[NoisePrivateKeySize]byte)(sk)
	curve25519.ScalarBaseMult(apk, ask)
	return
}

func (sk *NoisePrivateKey) sharedSecret(pk NoisePublicKey) (ss [NoisePublicKeySize]byte, err error) {
	apk := (*[NoisePublicKeySize]byte)(&pk)
	ask := (*[NoisePrivateKeySize]byte)(sk)
	curve25519.ScalarMult(&ss, ask, apk)
	if isZero(ss[:]) {
		return ss, errInvalidPublicKey
	}
	return ss, nil
}

func (sk NoisePrivateKey) IsZero() bool {
	var zero NoisePrivateKey
	return sk.Equals(zero)
}

func (sk NoisePrivateKey) Equals(other NoisePrivateKey) bool {
	return subtle.ConstantTimeCompare(sk[:], other[:]) == 1
}

func (pk NoisePublicKey) Equals(other NoisePublicKey) bool {
	return subtle.ConstantTimeCompare(pk[:], other[:]) == 1
}

func (pk NoisePublicKey) IsZero() bool {
	var zero NoisePublicKey
	return pk.Equals(zero)
}

func isZero(val []byte) bool {
	acc := byte(0)
	for _, b := range val {
		acc |= b
	}
	return acc == 0
}

// setZero overwrites key material with zero bytes before it is released or
// reused, per the secret-hygiene requirement on ephemeral keys, chaining
// keys and transcript hashes.
func setZero(arr []byte) {
	for i := range arr {
		arr[i] = 0
	}
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"crypto/hmac"
	"hash"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	NoiseConstruction = "Noise_IKpsk2_25519_ChaChaPoly_BLAKE2s"
	WGIdentifier      = "WireGuard v1 zx2c4 Jason@zx2c4.com"
	WGLabelMAC1       = "mac1----"
	WGLabelCookie     = "cookie--"
)

// InitialChainKey and InitialHash are the two compile-time anchors of the
// handshake: C := HASH(CONSTRUCTION), H := HASH(C || IDENTIFIER). They are
// carried as literal byte arrays (not computed in an init function) so that
// a divergence from the reference implementations is a compile-visible
// constant mismatch, checked byte-for-byte in kdf_test.go.
var (
	InitialChainKey = [blake2s.Size]byte{
		0x60, 0xe2, 0x6d, 0xae, 0xf3, 0x27, 0xef, 0xc0, 0x2e, 0xc3, 0x35, 0xe2, 0xa0, 0x25, 0xd2, 0xd0,
		0x16, 0xeb, 0x42, 0x06, 0xf8, 0x72, 0x77, 0xf5, 0x2d, 0x38, 0xd1, 0x98, 0x8b, 0x78, 0xcd, 0x36,
	}
	InitialHash = [blake2s.Size]byte{
		0x22, 0x11, 0xb3, 0x61, 0x08, 0x1a, 0xc5, 0x66, 0x69, 0x12, 0x43, 0xdb, 0x45, 0x8a, 0xd5, 0x32,
		0x2d, 0x9c, 0x6c, 0x66, 0x22, 0x93, 0xe8, 0xb7, 0x0e, 0xe1, 0x9c, 0x65, 0xba, 0x07, 0x9e, 0xf3,
	}
)

var ZeroNonce [chacha20poly1305.NonceSize]byte

// HASH appends data to the running transcript hash h and writes the
// result into dst. dst and h may alias.
func HASH(dst, h *[blake2s.Size]byte, data []byte) {
	hash, _ := blake2s.New256(nil)
	hash.Write(h[:])
	hash.Write(data)
	hash.Sum(dst[:0])
	hash.Reset()
}

func newBlake2s() hash.Hash {
	h, _ := blake2s.New256(nil)
	return h
}

// HMACBlake2s computes HMAC-BLAKE2s(key, data...) into sum. BLAKE2s' own
// keyed mode is deliberately not used here: this is HMAC built over an
// unkeyed BLAKE2s, exactly as crypto/hmac wraps any other block hash.
func HMACBlake2s(sum *[blake2s.Size]byte, key []byte, data ...[]byte) {
	mac := hmac.New(newBlake2s, key)
	for _, d := range data {
		mac.Write(d)
	}
	mac.Sum(sum[:0])
}

// KDF1 derives a single 32-byte output from ck and input, replacing ck
// with the new chaining key.
func KDF1(ck *[blake2s.Size]byte, input []byte) {
	var t0 [blake2s.Size]byte
	HMACBlake2s(&t0, ck[:], input)
	HMACBlake2s(ck, t0[:], []byte{0x1})
	setZero(t0[:])
}

// KDF2 derives two 32-byte outputs (the new chaining key ck, and t2) from
// ck and input.
func KDF2(ck, t2 *[blake2s.Size]byte, input []byte) {
	var t0, t1 [blake2s.Size]byte
	HMACBlake2s(&t0, ck[:], input)
	HMACBlake2s(&t1, t0[:], []byte{0x1})
	HMACBlake2s(t2, t0[:], t1[:], []byte{0x2})
	*ck = t1
	setZero(t0[:])
}

// KDF3 derives three 32-byte outputs (the new chaining key ck, t2 and t3)
// from ck and input.
func KDF3(ck, t2, t3 *[blake2s.Size]byte, input []byte) {
	var t0, t1 [blake2s.Size]byte
	HMACBlake2s(&t0, ck[:], input)
	HMACBlake2s(&t1, t0[:], []byte{0x1})
	HMACBlake2s(t2, t0[:], t1[:], []byte{0x2})
	HMACBlake2s(t3, t0[:], (*t2)[:], []byte{0x3})
	*ck = t1
	setZero(t0[:])
}

// handshakeSeal encrypts pt with the zero nonce under key, writing the
// ciphertext (same length as pt) and then the 16-byte tag into dst. dst
// must have capacity for len(pt)+poly1305.TagSize.
func handshakeSeal(dst []byte, key *[chacha20poly1305.KeySize]byte, ad, pt []byte) {
	aead, _ := chacha20poly1305.New(key[:])
	aead.Seal(dst[:0], ZeroNonce[:], pt, ad)
}

// handshakeOpen authenticates and decrypts ct (ct includes the trailing
// 16-byte tag) with the zero nonce under key, writing the plaintext into
// dst. A tag mismatch is reported as errDecryptionFailure.
func handshakeOpen(dst []byte, key *[chacha20poly1305.KeySize]byte, ad, ct []byte) error {
	aead, _ := chacha20poly1305.New(key[:])
	_, err := aead.Open(dst[:0], ZeroNonce[:], ct, ad)
	if err != nil {
		return errDecryptionFailure
	}
	return nil
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

// IndexTable is the device's id32 → Peer index: the locally-assigned
// session identifier embedded in every outbound Initiation/Response is
// allocated here, and is the only way the initiator's
// ConsumeMessageResponse locates the peer awaiting a response (identity
// there is proven by the id, not by a public key lookup). index 0 is never
// allocated; it is the sentinel a Peer's Handshake uses to mean "no
// outstanding local index".
type IndexTable struct {
	sync.RWMutex
	table map[uint32]*Peer
}

func (t *IndexTable) Init() {
	t.Lock()
	defer t.Unlock()
	t.table = make(map[uint32]*Peer)
}

// NewIndex allocates a fresh, currently-unused 32-bit identifier for peer
// and binds it in the table.
func (t *IndexTable) NewIndex(peer *Peer) uint32 {
	t.Lock()
	defer t.Unlock()

	for {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		index := binary.LittleEndian.Uint32(b[:])
		if index == 0 {
			continue
		}
		if _, ok := t.table[index]; ok {
			continue
		}
		t.table[index] = peer
		return index
	}
}

// Lookup returns the peer bound to index, or nil if index is unbound.
func (t *IndexTable) Lookup(index uint32) *Peer {
	t.RLock()
	defer t.RUnlock()
	return t.table[index]
}

// Delete unbinds index, if it is bound. index 0 is always a no-op, matching
// its use as the "no index" sentinel.
func (t *IndexTable) Delete(index uint32) {
	if index == 0 {
		return
	}
	t.Lock()
	defer t.Unlock()
	delete(t.table, index)
}

// Package journal provides an optional persistent mirror of the Optimistic
// Confirmation Verifier's in-memory journal, backed by
// github.com/cockroachdb/pebble. The in-memory journal in
// confirmation.Verifier is always authoritative at runtime; this store
// exists only so a restarted validator can reload its unrooted-optimistic-
// slots history instead of starting empty.
package journal

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"

	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// PebbleStore is a small big-endian-slot-keyed KV mirror of the optimistic
// confirmation journal. Keys are 40 bytes: an 8-byte big-endian slot
// followed by the 32-byte hash, so distinct hashes proposed for the same
// slot never collide and a prefix scan over a slot's 8-byte key prefix
// finds every hash recorded for it. Values are empty; membership in the
// keyspace is the only fact recorded.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if absent) a Pebble database at path.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Append persists entries, best-effort-durable (pebble.NoSync — this is a
// diagnostic mirror, not the system of record, so the extra fsync latency
// on the processor thread's hot path is not worth paying).
func (s *PebbleStore) Append(entries []vote.SlotHash) error {
	if len(entries) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	for _, e := range entries {
		if err := batch.Set(encodeKey(e), nil, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.NoSync)
}

// Compact rewrites the store to contain exactly kept, dropping everything
// else. Called after each VerifyForUnrooted pass so the persisted mirror
// never grows past what the in-memory journal retains.
func (s *PebbleStore) Compact(kept []vote.SlotHash) error {
	// The exclusive upper bound must sort after every 40-byte key,
	// including those whose slot's first byte is 0xff.
	upper := make([]byte, 8+types.HashLength+1)
	for i := range upper {
		upper[i] = 0xff
	}
	batch := s.db.NewBatch()
	if err := batch.DeleteRange([]byte{0x00}, upper, nil); err != nil {
		return err
	}
	for _, e := range kept {
		if err := batch.Set(encodeKey(e), nil, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.NoSync)
}

// LoadAll returns every (slot, hash) pair currently persisted, in key
// (slot-then-hash) order.
func (s *PebbleStore) LoadAll() ([]vote.SlotHash, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []vote.SlotHash
	for valid := iter.First(); valid; valid = iter.Next() {
		key := iter.Key()
		if len(key) != 8+types.HashLength {
			continue
		}
		slot := types.Slot(binary.BigEndian.Uint64(key[:8]))
		out = append(out, vote.SlotHash{
			Slot: slot,
			Hash: types.BytesToHash(key[8:]),
		})
	}
	return out, iter.Error()
}

func encodeKey(e vote.SlotHash) []byte {
	key := make([]byte, 8+types.HashLength)
	binary.BigEndian.PutUint64(key[:8], uint64(e.Slot))
	copy(key[8:], e.Hash.Bytes())
	return key
}

// Package statedb defines the journaled trie key-value store consumed by
// host bindings and provides an in-memory implementation suitable for
// tests and standalone invocations.
package statedb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// CheckpointToken identifies a nested journal checkpoint.
type CheckpointToken string

// DB is the capability set the runtime holds a handle to and bindings
// consume: get/update, commit to a content root, and nested
// checkpoint/rollback/commit-to journaling. Implementations are
// cloneable — Clone must return a handle that aliases the same
// underlying store, not a deep copy.
type DB interface {
	Get(key []byte) ([]byte, bool)
	Update(key, value []byte)
	Commit() [32]byte
	Checkpoint() CheckpointToken
	Rollback(token CheckpointToken)
	CommitTo(token CheckpointToken)
	Clone() DB
}

type record struct {
	value   []byte
	deleted bool
}

// InMemoryTrie is a journaled, shared-ownership key-value store. Cloning
// an *InMemoryTrie yields a new handle over the same underlying state
// (via the shared *store pointer); it is the default DB used when a
// RuntimeContext is built without an explicit jzkt handle.
type InMemoryTrie struct {
	store *store
}

type store struct {
	mu       sync.Mutex
	data     map[string][]byte
	journals []journal
}

// journal is one checkpoint frame: the key/record pairs touched since the
// checkpoint was taken, in insertion order, so Rollback can restore prior
// values (or delete keys that did not exist before the checkpoint).
type journal struct {
	token  CheckpointToken
	before map[string]record
	order  []string
}

// NewInMemoryTrie constructs an empty journaled store.
func NewInMemoryTrie() *InMemoryTrie {
	return &InMemoryTrie{store: &store{data: make(map[string][]byte)}}
}

func (t *InMemoryTrie) Get(key []byte) ([]byte, bool) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v, ok := t.store.data[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (t *InMemoryTrie) Update(key, value []byte) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	k := string(key)
	if len(t.store.journals) > 0 {
		top := &t.store.journals[len(t.store.journals)-1]
		if _, seen := top.before[k]; !seen {
			if old, ok := t.store.data[k]; ok {
				top.before[k] = record{value: old}
			} else {
				top.before[k] = record{deleted: true}
			}
			top.order = append(top.order, k)
		}
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.store.data[k] = v
}

// Commit hashes the current key-value contents into a content-addressed
// root. This is not a cryptographic trie construction — it is a stable,
// deterministic blake2b digest of the sorted key/value pairs, sufficient
// to detect state divergence in tests and CLI output.
func (t *InMemoryTrie) Commit() [32]byte {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	keys := make([]string, 0, len(t.store.data))
	for k := range t.store.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.Write(t.store.data[k])
		buf.WriteByte(0)
	}
	return blake2b.Sum256(buf.Bytes())
}

func (t *InMemoryTrie) Checkpoint() CheckpointToken {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	token := CheckpointToken(uuid.NewString())
	t.store.journals = append(t.store.journals, journal{
		token:  token,
		before: make(map[string]record),
	})
	return token
}

// Rollback undoes every Update recorded since the checkpoint identified
// by token, then discards it and any nested checkpoints taken after it.
func (t *InMemoryTrie) Rollback(token CheckpointToken) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	idx := t.store.findJournal(token)
	if idx < 0 {
		return
	}
	for i := len(t.store.journals) - 1; i >= idx; i-- {
		j := t.store.journals[i]
		for _, k := range j.order {
			rec := j.before[k]
			if rec.deleted {
				delete(t.store.data, k)
			} else {
				t.store.data[k] = rec.value
			}
		}
	}
	t.store.journals = t.store.journals[:idx]
}

// CommitTo discards the checkpoint identified by token and every nested
// checkpoint taken after it, keeping their changes (folding them into the
// enclosing frame, or into committed state if token was the outermost
// checkpoint).
func (t *InMemoryTrie) CommitTo(token CheckpointToken) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	idx := t.store.findJournal(token)
	if idx < 0 {
		return
	}
	t.store.journals = t.store.journals[:idx]
}

func (s *store) findJournal(token CheckpointToken) int {
	for i := len(s.journals) - 1; i >= 0; i-- {
		if s.journals[i].token == token {
			return i
		}
	}
	return -1
}

// Clone returns a new handle aliasing the same underlying store. It does
// not duplicate stored data.
func (t *InMemoryTrie) Clone() DB {
	return &InMemoryTrie{store: t.store}
}

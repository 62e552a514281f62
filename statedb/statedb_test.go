package statedb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/statedb"
)

func TestGetUpdateRoundTrip(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	_, ok := db.Get([]byte("missing"))
	require.False(t, ok)

	db.Update([]byte("k"), []byte("v1"))
	v, ok := db.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestCommitIsDeterministic(t *testing.T) {
	a := statedb.NewInMemoryTrie()
	a.Update([]byte("x"), []byte("1"))
	a.Update([]byte("y"), []byte("2"))

	b := statedb.NewInMemoryTrie()
	b.Update([]byte("y"), []byte("2"))
	b.Update([]byte("x"), []byte("1"))

	require.Equal(t, a.Commit(), b.Commit(), "commit root must not depend on update order")
}

func TestCommitChangesWithState(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	root1 := db.Commit()
	db.Update([]byte("k"), []byte("v"))
	root2 := db.Commit()
	require.NotEqual(t, root1, root2)
}

func TestCheckpointRollback(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	db.Update([]byte("k"), []byte("before"))

	tok := db.Checkpoint()
	db.Update([]byte("k"), []byte("after"))
	db.Update([]byte("new"), []byte("value"))

	db.Rollback(tok)

	v, ok := db.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("before"), v)

	_, ok = db.Get([]byte("new"))
	require.False(t, ok, "a key created after the checkpoint must not survive rollback")
}

func TestRollbackRestoresDeletionForNewKey(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	tok := db.Checkpoint()
	db.Update([]byte("brand-new"), []byte("v"))
	db.Rollback(tok)

	_, ok := db.Get([]byte("brand-new"))
	require.False(t, ok)
}

func TestNestedCheckpointRollbackDiscardsInnerFrames(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	outer := db.Checkpoint()
	db.Update([]byte("k"), []byte("1"))
	inner := db.Checkpoint()
	db.Update([]byte("k"), []byte("2"))

	db.Rollback(outer)

	_, ok := db.Get([]byte("k"))
	require.False(t, ok)
	// inner token is gone along with outer; using it again is a no-op.
	db.Rollback(inner)
}

func TestCommitToKeepsChangesButDiscardsCheckpoint(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	tok := db.Checkpoint()
	db.Update([]byte("k"), []byte("v"))
	db.CommitTo(tok)

	v, ok := db.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}

func TestCloneAliasesSameStore(t *testing.T) {
	db := statedb.NewInMemoryTrie()
	clone := db.Clone()

	clone.Update([]byte("k"), []byte("v"))
	v, ok := db.Get([]byte("k"))
	require.True(t, ok, "Clone must alias the same underlying store, not deep-copy it")
	require.Equal(t, []byte("v"), v)
}

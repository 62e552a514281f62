package linker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/linker"
)

func TestSharedExcludesStateMutation(t *testing.T) {
	shared := linker.Shared()
	for _, name := range []string{
		linker.FnStateUpdate,
		linker.FnStateCommit,
		linker.FnCheckpoint,
		linker.FnRollback,
		linker.FnCommitTo,
		linker.FnNestedCall,
	} {
		_, ok := shared.Lookup(name)
		require.False(t, ok, "shared catalog must not declare %s", name)
	}
}

func TestSovereignIsSupersetOfShared(t *testing.T) {
	sovereign := linker.Sovereign()
	shared := linker.Shared()
	for _, name := range shared.Names() {
		_, ok := sovereign.Lookup(name)
		require.True(t, ok, "sovereign catalog must declare every shared name (%s)", name)
	}
	require.Greater(t, len(sovereign.Names()), len(shared.Names()))
}

func TestForSelectsBySurface(t *testing.T) {
	require.Same(t, linker.Shared(), linker.For(true))
	require.Same(t, linker.Sovereign(), linker.For(false))
}

func TestCatalogsAreProcessWideSingletons(t *testing.T) {
	require.Same(t, linker.Sovereign(), linker.Sovereign())
	require.Same(t, linker.Shared(), linker.Shared())
}

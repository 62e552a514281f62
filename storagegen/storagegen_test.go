package storagegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/storagegen"
)

const fixture = `
package storage

type ERC20Storage struct {
	Balances  uint64 ` + "`storage:\"mapping(address,uint256)\" slot:\"0\"`" + `
	Owner     uint64 ` + "`storage:\"scalar(address)\" slot:\"1\"`" + `
	Allowance uint64 ` + "`storage:\"mapping(address,mapping(address,uint256))\" slot:\"2\"`" + `
	Plain     uint64
}
`

func TestParseExtractsStorageTaggedFields(t *testing.T) {
	decls, err := storagegen.Parse("erc20.go", fixture)
	require.NoError(t, err)
	require.Len(t, decls, 3)

	require.Equal(t, "Balances", decls[0].FieldName)
	require.Equal(t, storagegen.Mapping, decls[0].Kind)
	require.Equal(t, 1, decls[0].KeyArity)
	require.Equal(t, uint64(0), decls[0].SlotIndex)

	require.Equal(t, "Owner", decls[1].FieldName)
	require.Equal(t, storagegen.Scalar, decls[1].Kind)
	require.Equal(t, uint64(1), decls[1].SlotIndex)

	require.Equal(t, "Allowance", decls[2].FieldName)
	require.Equal(t, storagegen.Mapping, decls[2].Kind)
	require.Equal(t, 2, decls[2].KeyArity)
}

func TestGenerateProducesOneTypePerSlot(t *testing.T) {
	decls, err := storagegen.Parse("erc20.go", fixture)
	require.NoError(t, err)

	out, err := storagegen.Generate("storage", decls)
	require.NoError(t, err)

	src := string(out)
	require.True(t, strings.Contains(src, "package storage"))
	require.True(t, strings.Contains(src, "type BalancesSlot struct{}"))
	require.True(t, strings.Contains(src, "type OwnerSlot struct{}"))
	require.True(t, strings.Contains(src, "type AllowanceSlot struct{}"))
	require.False(t, strings.Contains(src, "PlainSlot"))
}

func TestKeyIsDeterministicAndKeyDependent(t *testing.T) {
	k1 := storagegen.Key(0, []byte{0x01})
	k2 := storagegen.Key(0, []byte{0x01})
	k3 := storagegen.Key(0, []byte{0x02})

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestScalarKeyIsLeftPaddedSlotIndex(t *testing.T) {
	key := storagegen.Key(1)
	require.Equal(t, byte(1), key[31])
	for i := 0; i < 31; i++ {
		require.Equal(t, byte(0), key[i])
	}
}

func TestNestedMappingKeyDiffersFromFlat(t *testing.T) {
	nested := storagegen.Key(2, []byte{0x01}, []byte{0x02})
	flat := storagegen.Key(2, []byte{0x01})
	require.NotEqual(t, nested, flat)
}

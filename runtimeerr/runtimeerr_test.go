package runtimeerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/runtimeerr"
)

func TestCatchTrappability(t *testing.T) {
	tests := []struct {
		name string
		err  *runtimeerr.Error
		want bool
	}{
		{"module load", runtimeerr.Load(fmt.Errorf("bad wasm")), true},
		{"instantiation", runtimeerr.Instantiate(fmt.Errorf("missing import")), true},
		{"missing entrypoint", runtimeerr.MissingMain(), false},
		{"trap", runtimeerr.TrapErr(fmt.Errorf("unreachable")), true},
		{"other", runtimeerr.OtherErr(fmt.Errorf("linker issue")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.CatchTrappable())
		})
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := runtimeerr.Load(cause)
	require.ErrorIs(t, err, cause)
}

func TestErrorsAsRecoversKind(t *testing.T) {
	wrapped := fmt.Errorf("wrapping: %w", runtimeerr.TrapErr(fmt.Errorf("oob")))

	var rerr *runtimeerr.Error
	require.True(t, errors.As(wrapped, &rerr))
	require.Equal(t, runtimeerr.Trap, rerr.Kind)
}

func TestMissingMainHasNilCause(t *testing.T) {
	err := runtimeerr.MissingMain()
	require.Equal(t, "missing_entrypoint", err.Error())
	require.Nil(t, errors.Unwrap(err))
}

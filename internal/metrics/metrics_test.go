package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/internal/metrics"
)

func TestObserveInvocationDoesNotPanic(t *testing.T) {
	c := metrics.New("rwasmvm_test")
	require.NotPanics(t, func() {
		c.ObserveInvocation(false, 0, 500, true, 0.01)
		c.ObserveInvocation(true, -2, 0, false, 0.002)
	})
	require.NotNil(t, c.Handler())
}

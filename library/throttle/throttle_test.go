package throttle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{TotalPerSec: 0, TotalBurst: 1, EachPerSec: 1, EachBurst: 1})
	require.Error(t, err)
	_, err = New(Config{TotalPerSec: 1, TotalBurst: 1, EachPerSec: 1, EachBurst: 0})
	require.Error(t, err)

	th, err := New(Config{TotalPerSec: 1, TotalBurst: 1, EachPerSec: 1, EachBurst: 1})
	require.NoError(t, err)
	require.Equal(t, defaultMaxKeys, th.cfg.MaxKeys)
}

func TestAllowPerKey(t *testing.T) {
	t.Parallel()

	// refill is slow enough that no token comes back during the test
	th, err := New(Config{TotalPerSec: 0.001, TotalBurst: 10, EachPerSec: 0.001, EachBurst: 2})
	require.NoError(t, err)

	require.True(t, th.Allow("a"))
	require.True(t, th.Allow("a"))
	require.False(t, th.Allow("a"))

	// other keys keep their own bucket
	require.True(t, th.Allow("b"))
	require.Equal(t, 2, th.Len())
}

func TestAllowTotal(t *testing.T) {
	t.Parallel()

	th, err := New(Config{TotalPerSec: 0.001, TotalBurst: 3, EachPerSec: 0.001, EachBurst: 5})
	require.NoError(t, err)

	allowed := 0
	for i := 0; i < 6; i++ {
		if th.Allow(fmt.Sprintf("client-%d", i)) {
			allowed++
		}
	}
	require.Equal(t, 3, allowed)
}

func TestMaxKeys(t *testing.T) {
	t.Parallel()

	th, err := New(Config{TotalPerSec: 1000, TotalBurst: 1000, EachPerSec: 1, EachBurst: 1, MaxKeys: 3})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		th.Allow(fmt.Sprintf("k%d", i))
	}
	require.Equal(t, 3, th.Len())

	th.Allow("k3")
	require.Equal(t, 1, th.Len())
}

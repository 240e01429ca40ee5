package payment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount     int64
		percent    int
		commission int64
	}{
		{1500000, 20, 300000},
		{250, 20, 50},
		{5, 10, 1},  // 0.5 rounds up
		{4, 10, 0},  // 0.4 rounds down
		{15, 10, 2}, // 1.5 rounds up
		{0, 20, 0},
		{999, 0, 0},
		{999, 100, 999},
		{333, 33, 110}, // 109.89
	}
	for _, c := range cases {
		commission, artisan := Split(c.amount, c.percent)
		require.Equal(t, c.commission, commission, "amount=%d percent=%d", c.amount, c.percent)
		require.Equal(t, c.amount-c.commission, artisan)
	}
}

func TestSplitConservesAmount(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		amount := r.Int63n(1_000_000_000)
		percent := r.Intn(101)
		commission, artisan := Split(amount, percent)
		require.Equal(t, amount, commission+artisan)
		require.GreaterOrEqual(t, commission, int64(0))
		require.GreaterOrEqual(t, artisan, int64(0))
	}
}

package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
)

func TestTake_BlocksAfterLimit(t *testing.T) {
	l, err := New("payment_init", "2-M")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = l.Take(ctx, "customer-1")
	require.NoError(t, err)
	_, err = l.Take(ctx, "customer-1")
	require.NoError(t, err)

	_, err = l.Take(ctx, "customer-1")
	require.ErrorIs(t, err, apperr.ErrRateLimited)

	// other keys are independent
	_, err = l.Take(ctx, "customer-2")
	require.NoError(t, err)
}

func TestNew_InvalidRate(t *testing.T) {
	_, err := New("submission", "lots")
	require.Error(t, err)
}

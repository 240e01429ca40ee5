package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_MatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("ledger: %w", InvalidTransition("job %s is %s", "j1", "pending"))

	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, KindInvalidTransition, KindOf(err))
	require.Equal(t, "job j1 is pending", PublicMessage(err))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, KindInternal, KindOf(err))
	require.Equal(t, "internal error", PublicMessage(err))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(KindOf(err)))
}

func TestGatewayUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := GatewayUnavailable(cause)

	require.ErrorIs(t, err, ErrGatewayUnavailable)
	require.ErrorIs(t, err, cause)
	require.NotContains(t, PublicMessage(err), "dial tcp")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:           http.StatusBadRequest,
		KindUnauthorized:         http.StatusForbidden,
		KindSignatureInvalid:     http.StatusUnauthorized,
		KindNotFound:             http.StatusNotFound,
		KindInvalidTransition:    http.StatusConflict,
		KindRateLimited:          http.StatusTooManyRequests,
		KindGatewayUnavailable:   http.StatusServiceUnavailable,
		KindConsistencyViolation: http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, HTTPStatus(kind), kind)
	}
}

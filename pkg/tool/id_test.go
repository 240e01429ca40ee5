package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePaymentReference(t *testing.T) {
	a, b := GeneratePaymentReference(), GeneratePaymentReference()
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "ndz_"))
	require.Len(t, a, len("ndz_")+32)
	require.NotContains(t, a, "-")
}

func TestIsUUID(t *testing.T) {
	require.True(t, IsUUID(GenerateUUIDV7()))
	require.False(t, IsUUID("job-1"))
}

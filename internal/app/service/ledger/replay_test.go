package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

func row(from *types.JobStatus, to types.JobStatus) *models.JobStatusHistory {
	return &models.JobStatusHistory{OldStatus: from, NewStatus: to}
}

func st(s types.JobStatus) *types.JobStatus { return &s }

func TestReplayHistory(t *testing.T) {
	rows := []*models.JobStatusHistory{
		row(nil, types.JobStatusPending),
		row(st(types.JobStatusPending), types.JobStatusAssigned),
		row(st(types.JobStatusAssigned), types.JobStatusQuoted),
		row(st(types.JobStatusQuoted), types.JobStatusPriceAgreed),
		row(st(types.JobStatusPriceAgreed), types.JobStatusPaymentEscrowed),
		row(st(types.JobStatusPaymentEscrowed), types.JobStatusInProgress),
		row(st(types.JobStatusInProgress), types.JobStatusCompleted),
		row(st(types.JobStatusCompleted), types.JobStatusConfirmed),
		row(st(types.JobStatusConfirmed), types.JobStatusDisputed),
		row(st(types.JobStatusDisputed), types.JobStatusDisputed),
	}
	r, err := ReplayHistory(rows)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusDisputed, r.Status)
	require.Equal(t, 8, r.Transitions)
	require.Equal(t, 1, r.Annotations)
}

func TestReplayHistoryRejects(t *testing.T) {
	cases := map[string][]*models.JobStatusHistory{
		"empty":         nil,
		"no creation":   {row(st(types.JobStatusPending), types.JobStatusAssigned)},
		"illegal edge":  {row(nil, types.JobStatusPending), row(st(types.JobStatusPending), types.JobStatusCompleted)},
		"broken chain":  {row(nil, types.JobStatusPending), row(st(types.JobStatusAssigned), types.JobStatusQuoted)},
		"double create": {row(nil, types.JobStatusPending), row(nil, types.JobStatusPending)},
		"stray annotation": {
			row(nil, types.JobStatusPending),
			row(st(types.JobStatusQuoted), types.JobStatusQuoted),
		},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReplayHistory(rows)
			require.Error(t, err)
		})
	}
}

func TestFormatNaira(t *testing.T) {
	require.Equal(t, "₦15,000.00", FormatNaira(1500000))
	require.Equal(t, "₦0.05", FormatNaira(5))
	require.Equal(t, "₦1,234,567.89", FormatNaira(123456789))
	require.Equal(t, "₦999.00", FormatNaira(99900))
	require.Equal(t, "-₦1.50", FormatNaira(-150))
}

package ledger

import (
	"fmt"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type Replay struct {
	Status      types.JobStatus
	Transitions int
	Annotations int
}

// ReplayHistory walks rows oldest first from the creation row and checks
// every step against the lifecycle edges. Annotations must sit on the
// status current at that point.
func ReplayHistory(rows []*models.JobStatusHistory) (Replay, error) {
	var r Replay
	if len(rows) == 0 {
		return r, fmt.Errorf("history is empty")
	}
	first := rows[0]
	if first.OldStatus != nil || first.NewStatus != types.JobStatusPending {
		return r, fmt.Errorf("history does not start with job creation into pending")
	}
	r.Status = types.JobStatusPending

	for i, row := range rows[1:] {
		if row.OldStatus == nil {
			return r, fmt.Errorf("row %d: second creation row", i+1)
		}
		if *row.OldStatus != r.Status {
			return r, fmt.Errorf("row %d: starts from %s but job was %s", i+1, *row.OldStatus, r.Status)
		}
		if row.IsAnnotation() {
			r.Annotations++
			continue
		}
		if !r.Status.CanTransitionTo(row.NewStatus) {
			return r, fmt.Errorf("row %d: illegal edge %s -> %s", i+1, r.Status, row.NewStatus)
		}
		r.Status = row.NewStatus
		r.Transitions++
	}
	return r, nil
}

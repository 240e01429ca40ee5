package types

type JobStatus string

const (
	JobStatusPending             JobStatus = "pending"
	JobStatusAssigned            JobStatus = "assigned"
	JobStatusQuoted              JobStatus = "quoted"
	JobStatusInspectionRequested JobStatus = "inspection_requested"
	JobStatusInspectionPaid      JobStatus = "inspection_paid"
	JobStatusPriceAgreed         JobStatus = "price_agreed"
	JobStatusPaymentEscrowed     JobStatus = "payment_escrowed"
	JobStatusInProgress          JobStatus = "in_progress"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusConfirmed           JobStatus = "confirmed"
	JobStatusDisputed            JobStatus = "disputed"
	JobStatusCancelled           JobStatus = "cancelled"
)

// jobTransitions is the complete edge set of the job lifecycle.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:             {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:            {JobStatusQuoted, JobStatusInspectionRequested, JobStatusCancelled},
	JobStatusInspectionRequested: {JobStatusInspectionPaid, JobStatusCancelled},
	JobStatusInspectionPaid:      {JobStatusQuoted, JobStatusCancelled},
	JobStatusQuoted:              {JobStatusPriceAgreed, JobStatusCancelled},
	JobStatusPriceAgreed:         {JobStatusPaymentEscrowed, JobStatusCancelled},
	JobStatusPaymentEscrowed:     {JobStatusInProgress, JobStatusCompleted, JobStatusCancelled},
	JobStatusInProgress:          {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:           {JobStatusConfirmed, JobStatusCancelled},
	JobStatusConfirmed:           {JobStatusDisputed},
	JobStatusDisputed:            {},
	JobStatusCancelled:           {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, status := range jobTransitions[s] {
		if status == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s JobStatus) IsTerminal() bool {
	return s.IsValid() && len(jobTransitions[s]) == 0
}

// ReachedConfirmation reports whether the job has passed customer confirmation.
func (s JobStatus) ReachedConfirmation() bool {
	return s == JobStatusConfirmed || s == JobStatusDisputed
}

// CountsAsCompleted is used by artisan performance aggregation.
func (s JobStatus) CountsAsCompleted() bool {
	return s == JobStatusCompleted || s.ReachedConfirmation()
}

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusClosed   DisputeStatus = "closed"
)

func (s DisputeStatus) IsResolution() bool {
	return s == DisputeStatusResolved || s == DisputeStatusClosed
}

type ViolationType string

const (
	ViolationTypeBypassAttempt ViolationType = "bypass_attempt"
	ViolationTypeNoShow        ViolationType = "no_show"
	ViolationTypePoorQuality   ViolationType = "poor_quality"
	ViolationTypeOther         ViolationType = "other"
)

func (v ViolationType) IsValid() bool {
	switch v {
	case ViolationTypeBypassAttempt, ViolationTypeNoShow, ViolationTypePoorQuality, ViolationTypeOther:
		return true
	}
	return false
}

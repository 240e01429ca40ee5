package types

type PaymentProvider string

const (
	PaymentProviderPaystack PaymentProvider = "paystack"
)

type PaymentType string

const (
	PaymentTypeInspectionFee PaymentType = "inspection_fee"
	PaymentTypeJobPayment    PaymentType = "job_payment"
)

func (t PaymentType) IsValid() bool {
	return t == PaymentTypeInspectionFee || t == PaymentTypeJobPayment
}

// RequiredJobStatus is the job state in which a payment of this type may be initialized.
func (t PaymentType) RequiredJobStatus() JobStatus {
	if t == PaymentTypeInspectionFee {
		return JobStatusInspectionRequested
	}
	return JobStatusPriceAgreed
}

// SettledStatus is the payment status recorded once the gateway confirms the charge.
func (t PaymentType) SettledStatus() PaymentStatus {
	if t == PaymentTypeJobPayment {
		return PaymentStatusHeld
	}
	return PaymentStatusPaid
}

// SettledJobTransition is the job edge driven by a confirmed charge of this type.
func (t PaymentType) SettledJobTransition() (from JobStatus, to JobStatus) {
	if t == PaymentTypeJobPayment {
		return JobStatusPriceAgreed, JobStatusPaymentEscrowed
	}
	return JobStatusInspectionRequested, JobStatusInspectionPaid
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusHeld},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusHeld:     {PaymentStatusReleased, PaymentStatusRefunded},
	PaymentStatusReleased: {PaymentStatusRefunded},
	PaymentStatusRefunded: {},
}

// CanAdvanceTo enforces that payment status only moves forward.
func (s PaymentStatus) CanAdvanceTo(next PaymentStatus) bool {
	for _, status := range paymentTransitions[s] {
		if status == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether the gateway already confirmed the charge.
func (s PaymentStatus) IsSettled() bool {
	return s != PaymentStatusPending && s != ""
}

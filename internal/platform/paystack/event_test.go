package paystack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	sig := Sign("sk_test", body)

	require.True(t, VerifySignature("sk_test", body, sig))
	require.False(t, VerifySignature("sk_other", body, sig))
	require.False(t, VerifySignature("sk_test", []byte(`{"event":"charge.failed"}`), sig))
	require.False(t, VerifySignature("sk_test", body, "not-hex"))
	require.False(t, VerifySignature("sk_test", body, ""))
	require.False(t, VerifySignature("", body, Sign("", body)))
}

func TestParseEvent_MetadataObjectAndString(t *testing.T) {
	obj := []byte(`{"event":"charge.success","data":{"id":42,"reference":"ndz_1","amount":1500000,"paid_at":"2026-03-01T10:00:00.000Z","metadata":{"job_id":"j1","payment_type":"job_payment","customer_id":"c1","artisan_id":"a1"}}}`)
	ev, err := ParseEvent(obj)
	require.NoError(t, err)
	require.Equal(t, EventChargeSuccess, ev.Event)
	require.Equal(t, "j1", ev.Data.Metadata.JobID)
	require.Equal(t, "job_payment", ev.Data.Metadata.PaymentType)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ev.Data.PaidTime(time.Time{}))

	str := []byte(`{"event":"charge.success","data":{"reference":"ndz_2","metadata":"{\"job_id\":\"j2\",\"payment_type\":\"inspection_fee\"}"}}`)
	ev, err = ParseEvent(str)
	require.NoError(t, err)
	require.Equal(t, "j2", ev.Data.Metadata.JobID)

	empty := []byte(`{"event":"transfer.success","data":{"reference":"x","metadata":""}}`)
	ev, err = ParseEvent(empty)
	require.NoError(t, err)
	require.Empty(t, ev.Data.Metadata.JobID)
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	require.Error(t, err)
	_, err = ParseEvent([]byte(`{"data":{}}`))
	require.Error(t, err)
}

func TestPaidTime_Fallback(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, fallback, ChargeData{}.PaidTime(fallback))
	require.Equal(t, fallback, ChargeData{PaidAt: "yesterday"}.PaidTime(fallback))
}

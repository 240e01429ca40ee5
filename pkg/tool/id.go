package tool

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratePaymentReference returns a gateway reference bound to a single payment.
func GeneratePaymentReference() string {
	return "ndz_" + strings.ReplaceAll(GenerateUUIDV7(), "-", "")
}

// IsUUID reports whether s parses as a UUID (any version).
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NowUTC is the clock services use unless a test overrides it.
func NowUTC() time.Time {
	return time.Now().UTC()
}

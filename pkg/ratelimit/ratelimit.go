package ratelimit

import (
	"context"
	"fmt"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/fx"

	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
)

// Limiter throttles by an arbitrary key (client ip, customer id).
type Limiter struct {
	name     string
	instance *limiter.Limiter
}

// New builds a memory-backed limiter from a formatted rate such as "5-M".
func New(name, formatted string) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid %s rate %q: %w", name, formatted, err)
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "jobdesk_" + name,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	return &Limiter{name: name, instance: limiter.New(store, rate)}, nil
}

// Take consumes one token for key. Any failure to consult the store is
// reported as rate limited so abuse paths fail closed.
func (l *Limiter) Take(ctx context.Context, key string) (limiter.Context, error) {
	lctx, err := l.instance.Get(ctx, key)
	if err != nil {
		return lctx, apperr.Wrap(err, apperr.KindRateLimited, "rate limiter unavailable")
	}
	if lctx.Reached {
		return lctx, apperr.New(apperr.KindRateLimited, "too many %s requests, try again later", l.name)
	}
	return lctx, nil
}

// Limiters are the process-wide throttles.
type Limiters struct {
	PaymentInit *Limiter
	Submission  *Limiter
}

func NewLimiters(cfg *config.Config) (*Limiters, error) {
	paymentInit, err := New("payment_init", cfg.RateLimit.PaymentInit)
	if err != nil {
		return nil, err
	}
	submission, err := New("submission", cfg.RateLimit.Submission)
	if err != nil {
		return nil, err
	}
	return &Limiters{PaymentInit: paymentInit, Submission: submission}, nil
}

var Module = fx.Options(
	fx.Provide(NewLimiters),
)

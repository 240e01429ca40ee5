package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
)

const DefaultCurrency = "NGN"

// Split divides amount into the platform commission, rounded half-up, and
// the artisan share. commission + artisan == amount.
func Split(amount int64, percent int) (commission, artisan int64) {
	commission = (amount*int64(percent) + 50) / 100
	return commission, amount - commission
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	cfg     *config.Config
	ledger  *ledger.Service
	gateway paystack.Gateway
	limiter *ratelimit.Limiter
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Config   *config.Config
	Ledger   *ledger.Service
	Gateway  paystack.Gateway
	Limiters *ratelimit.Limiters
}

func New(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log,
		cfg:     p.Config,
		ledger:  p.Ledger,
		gateway: p.Gateway,
		limiter: p.Limiters.PaymentInit,
	}
}

func (s *Service) now() time.Time { return s.ledger.Now() }

func loadPayment(ctx context.Context, tx *gorm.DB, id string) (*models.Payment, error) {
	var p models.Payment
	err := tx.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &p, nil
}

func loadPaymentByReference(ctx context.Context, tx *gorm.DB, reference string) (*models.Payment, error) {
	var p models.Payment
	err := tx.WithContext(ctx).Where("gateway_reference = ?", reference).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment by reference: %w", err)
	}
	return &p, nil
}

var Module = fx.Options(
	fx.Provide(New),
)

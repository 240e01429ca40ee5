package statistics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type StatisticType string

const (
	StatisticTypeDailyJobCount       StatisticType = "daily_job_count"
	StatisticTypeDailyGmv            StatisticType = "daily_gmv"
	StatisticTypeDailyCommission     StatisticType = "daily_commission"
	StatisticTypeHeldEscrow          StatisticType = "held_escrow"
	StatisticTypeJobStatusBreakdown  StatisticType = "job_status_breakdown"
	StatisticTypeDailyCancelledCount StatisticType = "daily_cancelled_count"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyJobCount,
	StatisticTypeDailyGmv,
	StatisticTypeDailyCommission,
	StatisticTypeHeldEscrow,
	StatisticTypeJobStatusBreakdown,
	StatisticTypeDailyCancelledCount,
}

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	From      time.Time   `json:"from"`
	To        time.Time   `json:"to"`
	DataItems []*DataItem `json:"data_items"`
}

type ResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

// Service reports platform-wide job and escrow figures for admins.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// settledStatuses are the payment states that count as collected money.
var settledStatuses = []types.PaymentStatus{types.PaymentStatusPaid, types.PaymentStatusHeld, types.PaymentStatusReleased}

type paymentRow struct {
	PaidAt           *time.Time
	Currency         string
	Amount           int64
	CommissionAmount int64
}

func (s *Service) settledPayments(ctx context.Context, r *Request) ([]paymentRow, error) {
	var rows []paymentRow
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("paid_at, currency, amount, commission_amount").
		Where("status IN ? AND paid_at >= ? AND paid_at < ?", settledStatuses, r.From, r.To).
		Find(&rows).Error
	return rows, err
}

// daily buckets by UTC date and label, newest first.
func daily[T any](rows []T, key func(T) (time.Time, string), value func(T) int64) []ResponseDataItem {
	sums := map[lo.Tuple2[string, string]]int64{}
	for _, row := range rows {
		at, label := key(row)
		k := lo.T2(at.UTC().Format(time.DateOnly), label)
		sums[k] += value(row)
	}
	out := lo.MapToSlice(sums, func(k lo.Tuple2[string, string], v int64) ResponseDataItem {
		return ResponseDataItem{Date: k.A, Label: k.B, Value: v}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func (s *Service) getDailyJobCount(ctx context.Context, r *Request, status *types.JobStatus) ([]ResponseDataItem, error) {
	var created []time.Time
	q := s.db.WithContext(ctx).Model(&models.Job{}).Where("created_at >= ? AND created_at < ?", r.From, r.To)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Pluck("created_at", &created).Error; err != nil {
		return nil, err
	}
	return daily(created, func(t time.Time) (time.Time, string) { return t, "" }, func(time.Time) int64 { return 1 }), nil
}

func (s *Service) getDailyGmv(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	rows, err := s.settledPayments(ctx, r)
	if err != nil {
		return nil, err
	}
	return daily(rows, func(p paymentRow) (time.Time, string) { return lo.FromPtr(p.PaidAt), p.Currency },
		func(p paymentRow) int64 { return p.Amount }), nil
}

func (s *Service) getDailyCommission(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	rows, err := s.settledPayments(ctx, r)
	if err != nil {
		return nil, err
	}
	return daily(rows, func(p paymentRow) (time.Time, string) { return lo.FromPtr(p.PaidAt), p.Currency },
		func(p paymentRow) int64 { return p.CommissionAmount }), nil
}

// getHeldEscrow is the money currently held, independent of the date range.
func (s *Service) getHeldEscrow(ctx context.Context, _ *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("currency AS label, COALESCE(SUM(amount), 0) AS value").
		Where("status = ?", types.PaymentStatusHeld).
		Group("currency").
		Order("currency").
		Scan(&results).Error
	return results, err
}

func (s *Service) getJobStatusBreakdown(ctx context.Context, _ *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	err := s.db.WithContext(ctx).Model(&models.Job{}).
		Select("status AS label, COUNT(*) AS value").
		Group("status").
		Order("status").
		Scan(&results).Error
	return results, err
}

func (s *Service) getStatistic(ctx context.Context, r *Request, item *DataItem) ([]ResponseDataItem, error) {
	switch item.ID {
	case StatisticTypeDailyJobCount:
		return s.getDailyJobCount(ctx, r, nil)
	case StatisticTypeDailyCancelledCount:
		return s.getDailyJobCount(ctx, r, lo.ToPtr(types.JobStatusCancelled))
	case StatisticTypeDailyGmv:
		return s.getDailyGmv(ctx, r)
	case StatisticTypeDailyCommission:
		return s.getDailyCommission(ctx, r)
	case StatisticTypeHeldEscrow:
		return s.getHeldEscrow(ctx, r)
	case StatisticTypeJobStatusBreakdown:
		return s.getJobStatusBreakdown(ctx, r)
	default:
		return nil, apperr.Validation("invalid data item id: %s", item.ID)
	}
}

// Get computes the requested items concurrently.
func (s *Service) Get(ctx context.Context, actor types.Actor, request *Request) (*Response, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	if request.To.IsZero() {
		request.To = time.Now().UTC()
	}
	if request.From.IsZero() {
		request.From = request.To.AddDate(0, 0, -30)
	}
	if !request.From.Before(request.To) {
		return nil, apperr.Validation("from must be before to")
	}
	if len(request.DataItems) == 0 {
		request.DataItems = lo.Map(statisticTypes, func(t StatisticType, _ int) *DataItem { return &DataItem{ID: t} })
	}
	for _, item := range request.DataItems {
		if !lo.Contains(statisticTypes, item.ID) {
			return nil, apperr.Validation("invalid data item id: %s", item.ID)
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []ResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *DataItem) {
			defer wg.Done()
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- fmt.Errorf("failed to compute %s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []ResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	wg.Wait()
	close(errChan)
	close(resChan)
	if err := <-errChan; err != nil {
		return nil, err
	}

	results := make(map[StatisticType][]ResponseDataItem)
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return &Response{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)

package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/avaldezco/sazonpos-backend/internal/orders"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
)

type summaryRepository interface {
	DailySummary(ctx context.Context, from, to time.Time) (*orders.DailySummary, error)
}

// Service answers the admin report queries from Postgres.
type Service interface {
	Daily(ctx context.Context, day time.Time) (*DailyReport, error)
}

// DailyReport is one day of completed-order activity.
type DailyReport struct {
	Date         string `json:"date"`
	Orders       int64  `json:"orders"`
	RevenueCents int64  `json:"revenue_cents"`
	ItemsSold    int64  `json:"items_sold"`
}

type service struct {
	repo summaryRepository
}

// NewService builds the reports query service.
func NewService(repo summaryRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// Daily aggregates the UTC calendar day containing the given instant.
func (s *service) Daily(ctx context.Context, day time.Time) (*DailyReport, error) {
	if day.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date required")
	}
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	summary, err := s.repo.DailySummary(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query daily summary")
	}
	return &DailyReport{
		Date:         from.Format("2006-01-02"),
		Orders:       summary.Orders,
		RevenueCents: summary.RevenueCents,
		ItemsSold:    summary.ItemsSold,
	}, nil
}

package cogs

import (
	"context"
	"log/slog"
	"time"

	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/window"
)

// Service turns storefront orders into persisted cost records and exposes
// the windowed aggregate view.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the COGS service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EnsureForOrders returns one OrderCOGS per order, creating missing records.
// An existing record wins unconditionally: the cost recorded at first sight
// is the authoritative history even when the live inventory cost has since
// changed. A persistence failure on one order is logged and skipped; the
// loop continues with the rest.
func (s *Service) EnsureForOrders(ctx context.Context, shop string, orders []storefront.Order) []OrderCOGS {
	records := make([]OrderCOGS, 0, len(orders))
	for _, order := range orders {
		record, _, err := s.repo.CreateIfAbsent(ctx, Compute(shop, order))
		if err != nil {
			s.logger.Error("ensure order cogs",
				slog.String("shop", shop),
				slog.String("order", order.ID),
				slog.Any("error", err))
			continue
		}
		records = append(records, record)
	}
	return records
}

// EnsureForOrder records a single order's costs, returning the winner row.
func (s *Service) EnsureForOrder(ctx context.Context, shop string, order storefront.Order) (OrderCOGS, error) {
	record, _, err := s.repo.CreateIfAbsent(ctx, Compute(shop, order))
	return record, err
}

// Aggregate returns the persisted records created inside the window along
// with their summary.
func (s *Service) Aggregate(ctx context.Context, shop string, win window.Window) ([]OrderCOGS, Summary, error) {
	since, err := time.Parse(window.DateLayout, win.Since)
	if err != nil {
		return nil, Summary{}, err
	}
	until, err := time.Parse(window.DateLayout, win.Until)
	if err != nil {
		return nil, Summary{}, err
	}

	records, err := s.repo.ListWindow(ctx, shop, since, until.AddDate(0, 0, 1))
	if err != nil {
		return nil, Summary{}, err
	}
	return records, SummaryOf(records), nil
}

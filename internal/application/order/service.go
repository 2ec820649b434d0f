package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/fulfillment"
)

// Result summarizes how an inbound order event was handled
type Result struct {
	// AlreadyProcessed is true when every fulfillable item of the order had
	// already completed before this delivery and no vendor call was made
	AlreadyProcessed bool
	// Fulfilled counts the items newly completed by this delivery
	Fulfilled int
}

// Service drives the per-line-item fulfillment state machine. The durable
// ledger's unique (order, package) pair plus the write-ahead pending insert
// provide the at-most-once purchase guarantee under retried and concurrent
// webhook deliveries; no in-process locking is involved.
type Service struct {
	orders   fulfillment.OrderRepository
	vendor   fulfillment.Vendor
	notifier fulfillment.Notifier
	logger   *zap.Logger
}

// NewService creates an order fulfillment service
func NewService(
	orders fulfillment.OrderRepository,
	vendor fulfillment.Vendor,
	notifier fulfillment.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:   orders,
		vendor:   vendor,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleOrder processes one inbound order event. Items whose SKU does not
// carry the catalog prefix are ignored. Items already recorded in the ledger
// are skipped without a vendor call. The first vendor failure marks that
// item's record as error and aborts the remaining items; earlier completions
// stand, purchases are not reversible.
func (s *Service) HandleOrder(ctx context.Context, order fulfillment.InboundOrder) (*Result, error) {
	items := fulfillableItems(order)
	if len(items) == 0 {
		s.logger.Info("order has no fulfillable items", zap.Int64("order_id", order.ID))
		return &Result{}, nil
	}

	done, err := s.allCompleted(ctx, order.ID, items)
	if err != nil {
		return nil, err
	}
	if done {
		s.logger.Info("order already fully processed, skipping",
			zap.Int64("order_id", order.ID))
		return &Result{AlreadyProcessed: true}, nil
	}

	result := &Result{}
	for _, item := range items {
		fulfilled, err := s.fulfillItem(ctx, order, item)
		if err != nil {
			return nil, err
		}
		if fulfilled {
			result.Fulfilled++
		}
	}
	return result, nil
}

// fulfillItem reserves, purchases and completes a single line item. A false
// return with nil error means the item was skipped because its ledger row
// already existed.
func (s *Service) fulfillItem(ctx context.Context, order fulfillment.InboundOrder, item fulfillableItem) (bool, error) {
	record, err := fulfillment.NewOrderRecord(order.ID, item.packageID, order.Email, order.CustomerName())
	if err != nil {
		return false, err
	}

	// write-ahead reservation: the pending row must exist before the vendor
	// call so a concurrent duplicate delivery conflicts here instead of
	// double-purchasing
	if err := s.orders.Insert(ctx, record); err != nil {
		if errors.Is(err, fulfillment.ErrDuplicateOrderItem) {
			s.logger.Info("order item already recorded, skipping",
				zap.Int64("order_id", order.ID),
				zap.String("package_id", item.packageID),
			)
			return false, nil
		}
		return false, fmt.Errorf("reserve order item: %w", err)
	}

	purchase, err := s.vendor.Purchase(ctx, item.packageID, order.Email, order.CustomerName())
	if err != nil {
		s.logger.Error("vendor purchase failed",
			zap.Int64("order_id", order.ID),
			zap.String("package_id", item.packageID),
			zap.Error(err),
		)
		if failErr := record.Fail(err.Error()); failErr != nil {
			return false, failErr
		}
		if updateErr := s.orders.Update(ctx, record); updateErr != nil {
			s.logger.Error("failed to persist error status",
				zap.Int64("order_id", order.ID),
				zap.String("package_id", item.packageID),
				zap.Error(updateErr),
			)
		}
		return false, fmt.Errorf("purchase package %s: %w", item.packageID, err)
	}

	if err := record.Complete(purchase.TransactionID, purchase.ESIM); err != nil {
		return false, err
	}
	if err := s.orders.Update(ctx, record); err != nil {
		return false, fmt.Errorf("persist completed item: %w", err)
	}

	s.logger.Info("order item fulfilled",
		zap.Int64("order_id", order.ID),
		zap.String("package_id", item.packageID),
		zap.String("transaction_id", purchase.TransactionID),
	)

	s.notify(ctx, order, item, purchase)
	return true, nil
}

// notify dispatches the fulfillment email. The purchase already happened, so
// a delivery failure is logged and swallowed, never rolled back or retried
// here.
func (s *Service) notify(ctx context.Context, order fulfillment.InboundOrder, item fulfillableItem, purchase *fulfillment.PurchaseResult) {
	n := fulfillment.Notification{
		Email:        order.Email,
		OrderNumber:  order.OrderNumber,
		PackageTitle: item.title,
		Result:       *purchase,
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Error("fulfillment notification failed",
			zap.Int64("order_id", order.ID),
			zap.String("package_id", item.packageID),
			zap.String("email", order.Email),
			zap.Error(err),
		)
	}
}

// allCompleted reports whether every fulfillable item of the order already
// has a completed ledger record.
func (s *Service) allCompleted(ctx context.Context, orderID int64, items []fulfillableItem) (bool, error) {
	records, err := s.orders.FindByOrder(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("load order records: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}

	completed := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == fulfillment.OrderStatusCompleted {
			completed[r.PackageID] = true
		}
	}
	for _, item := range items {
		if !completed[item.packageID] {
			return false, nil
		}
	}
	return true, nil
}

// OrderStatus returns all ledger records for one storefront order
func (s *Service) OrderStatus(ctx context.Context, orderID int64) ([]fulfillment.OrderRecord, error) {
	return s.orders.FindByOrder(ctx, orderID)
}

// RecentOrders returns the latest ledger records, newest first
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]fulfillment.OrderRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.orders.FindRecent(ctx, limit)
}

type fulfillableItem struct {
	packageID string
	title     string
}

func fulfillableItems(order fulfillment.InboundOrder) []fulfillableItem {
	var items []fulfillableItem
	for _, li := range order.LineItems {
		if packageID, ok := li.PackageID(); ok {
			items = append(items, fulfillableItem{packageID: packageID, title: li.Title})
		}
	}
	return items
}

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// OrderType names a fulfillment bucket. Orders live in two separate
// in-memory lists because the dashboard paginates and filters each
// bucket independently.
type OrderType string

const (
	OrderTypeFulfilled   OrderType = "fulfilled"
	OrderTypeUnfulfilled OrderType = "unfulfilled"
)

// Error-map keys; independent dashboard panels read independent slots.
const (
	errKeyFulfilled   = "fulfilled"
	errKeyUnfulfilled = "unfulfilled"
	errKeySingle      = "single"
)

type orderState struct {
	fulfilled   []models.Order
	unfulfilled []models.Order
	inView      *models.Order
	status      map[OrderType]LoadStatus
	errs        map[string]string
}

// OrderUpdates is the PATCH payload for an order. PaymentStatus is
// server-controlled and deliberately absent.
type OrderUpdates struct {
	DeliveryStatus  *string `json:"deliveryStatus,omitempty"`
	FulfilledStatus *string `json:"fulfilledStatus,omitempty"`
}

type ordersPayload struct {
	Orders []models.Order `json:"orders"`
	Total  int            `json:"total"`
}

// Orders returns a copy of one fulfillment bucket.
func (s *Store) Orders(typ OrderType) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Order(nil), *s.ordersBucketLocked(typ)...)
}

// OrderInView returns the currently inspected order, if any.
func (s *Store) OrderInView() (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders.inView == nil {
		return models.Order{}, false
	}
	return *s.orders.inView, true
}

// OrderErrors returns a copy of the per-operation-kind error map.
func (s *Store) OrderErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.orders.errs))
	for k, v := range s.orders.errs {
		out[k] = v
	}
	return out
}

// LoadOrders fetches one fulfillment bucket. A bucket that loaded
// successfully is not re-fetched unless force is set; a bucket already
// loading is left alone.
func (s *Store) LoadOrders(ctx context.Context, typ OrderType, force bool, limit int) error {
	ctx, span := util.StartSpan(ctx, "Store.LoadOrders")
	defer span.End()

	if typ != OrderTypeFulfilled && typ != OrderTypeUnfulfilled {
		return fmt.Errorf("unknown order type: %s", typ)
	}

	s.mu.Lock()
	switch s.orders.status[typ] {
	case StatusLoading:
		s.mu.Unlock()
		return nil
	case StatusSuccess:
		if !force {
			s.mu.Unlock()
			util.StoreCacheHits.WithLabelValues("orders:" + string(typ)).Inc()
			return nil
		}
	}
	s.orders.status[typ] = StatusLoading
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("orders:" + string(typ)).Inc()
	if limit <= 0 {
		limit = s.cfg.BackendPageSize
	}

	orders, _, err := s.fetchOrders(ctx, typ, 1, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.orders.status[typ] = StatusError
		s.orders.errs[string(typ)] = err.Error()
		return err
	}
	*s.ordersBucketLocked(typ) = orders
	s.orders.status[typ] = StatusSuccess
	delete(s.orders.errs, string(typ))
	return nil
}

// LoadOrder resolves an order by id, preferring the already-loaded
// buckets over a network round-trip.
func (s *Store) LoadOrder(ctx context.Context, id string) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Store.LoadOrder")
	defer span.End()

	s.mu.Lock()
	for _, list := range [][]models.Order{s.orders.fulfilled, s.orders.unfulfilled} {
		for _, o := range list {
			if o.ID == id {
				cp := o
				s.orders.inView = &cp
				s.mu.Unlock()
				util.StoreCacheHits.WithLabelValues("orders:single").Inc()
				return o, nil
			}
		}
	}
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("orders:single").Inc()
	var order models.Order
	err := s.api.Get(ctx, "/orders/"+id, &order, apiAuth())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.orders.errs[errKeySingle] = err.Error()
		return models.Order{}, err
	}
	cp := order
	s.orders.inView = &cp
	delete(s.orders.errs, errKeySingle)
	return order, nil
}

// UpdateOrder PATCHes an order and commits the response: it replaces
// the order in both buckets and in OrderInView, moving it between the
// fulfilled/unfulfilled lists when the fulfillment status changed.
// Nothing is applied locally until the backend confirms.
func (s *Store) UpdateOrder(ctx context.Context, id string, updates OrderUpdates) error {
	ctx, span := util.StartSpan(ctx, "Store.UpdateOrder")
	defer span.End()

	if updates.DeliveryStatus != nil && !models.ValidDeliveryStatus(*updates.DeliveryStatus) {
		return fmt.Errorf("invalid delivery status: %s", *updates.DeliveryStatus)
	}
	if updates.FulfilledStatus != nil && !models.ValidFulfilledStatus(*updates.FulfilledStatus) {
		return fmt.Errorf("invalid fulfillment status: %s", *updates.FulfilledStatus)
	}

	err := s.notifier.Promise(ctx, notify.Messages{
		Loading: "Updating order...",
		Success: "Order updated",
		Error:   "Could not update order",
	}, func(ctx context.Context) error {
		var updated models.Order
		if err := s.api.Patch(ctx, "/orders/"+id, updates, &updated, apiAuth()); err != nil {
			return err
		}

		s.mu.Lock()
		s.commitOrderUpdateLocked(updated)
		delete(s.orders.errs, errKeySingle)
		s.mu.Unlock()

		s.publishOrderUpdated(ctx, updated)
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.orders.errs[errKeySingle] = err.Error()
		s.mu.Unlock()
	}
	return err
}

// FulfillOrder requests the unfulfilled -> fulfilled transition. The
// reverse transition is not exposed.
func (s *Store) FulfillOrder(ctx context.Context, id string) error {
	fulfilled := models.FulfilledStatusFulfilled
	return s.UpdateOrder(ctx, id, OrderUpdates{FulfilledStatus: &fulfilled})
}

// RefundOrder deletes the order on the backend, then drops it from
// both buckets and clears OrderInView if it was showing.
func (s *Store) RefundOrder(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "Store.RefundOrder")
	defer span.End()

	err := s.notifier.Promise(ctx, notify.Messages{
		Loading: "Refunding order...",
		Success: "Order refunded",
		Error:   "Could not refund order",
	}, func(ctx context.Context) error {
		if err := s.api.Delete(ctx, "/orders/"+id, nil, apiAuth()); err != nil {
			return err
		}

		s.mu.Lock()
		s.removeOrderLocked(id)
		delete(s.orders.errs, errKeySingle)
		s.mu.Unlock()

		s.publishOrderRefunded(ctx, id)
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.orders.errs[errKeySingle] = err.Error()
		s.mu.Unlock()
	}
	return err
}

// OrderFilter is the client-side filter/sort input for a bucket.
type OrderFilter struct {
	Query     string
	Status    string
	From      time.Time
	To        time.Time
	Ascending bool
}

// FilteredOrders recomputes the filtered, sorted view of a bucket on
// every call. The lists are small; always reflecting the latest filter
// state matters more than caching the result.
func (s *Store) FilteredOrders(typ OrderType, f OrderFilter) []models.Order {
	orders := s.Orders(typ)

	out := make([]models.Order, 0, len(orders))
	query := strings.ToLower(strings.TrimSpace(f.Query))
	for _, o := range orders {
		if query != "" && !orderMatchesQuery(o, query) {
			continue
		}
		if f.Status != "" &&
			o.PaymentStatus != f.Status &&
			o.DeliveryStatus != f.Status &&
			o.FulfilledStatus != f.Status {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func orderMatchesQuery(o models.Order, query string) bool {
	for _, field := range []string{
		o.CustomerName,
		o.ID,
		o.ShortID(),
		o.PaymentStatus,
		o.DeliveryStatus,
		o.FulfilledStatus,
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// ApplyRemoteOrderUpdate commits an order patched by another session.
func (s *Store) ApplyRemoteOrderUpdate(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitOrderUpdateLocked(o)
}

// ApplyRemoteOrderRefund drops an order refunded by another session.
func (s *Store) ApplyRemoteOrderRefund(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeOrderLocked(id)
}

func (s *Store) ordersBucketLocked(typ OrderType) *[]models.Order {
	if typ == OrderTypeFulfilled {
		return &s.orders.fulfilled
	}
	return &s.orders.unfulfilled
}

// commitOrderUpdateLocked is the single commit path for a confirmed
// order update. The bucket move exists because each fulfillment list
// is an independent array, not a filtered view.
func (s *Store) commitOrderUpdateLocked(updated models.Order) {
	target := OrderTypeUnfulfilled
	if updated.FulfilledStatus == models.FulfilledStatusFulfilled {
		target = OrderTypeFulfilled
	}
	other := OrderTypeUnfulfilled
	if target == OrderTypeUnfulfilled {
		other = OrderTypeFulfilled
	}

	targetList := s.ordersBucketLocked(target)
	replaced := false
	for i := range *targetList {
		if (*targetList)[i].ID == updated.ID {
			(*targetList)[i] = updated
			replaced = true
			break
		}
	}

	otherList := s.ordersBucketLocked(other)
	removed := false
	for i := range *otherList {
		if (*otherList)[i].ID == updated.ID {
			*otherList = append((*otherList)[:i], (*otherList)[i+1:]...)
			removed = true
			break
		}
	}

	if !replaced && (removed || s.orders.status[target] == StatusSuccess) {
		*targetList = append(*targetList, updated)
	}

	if s.orders.inView != nil && s.orders.inView.ID == updated.ID {
		cp := updated
		s.orders.inView = &cp
	}
}

func (s *Store) removeOrderLocked(id string) {
	for _, typ := range []OrderType{OrderTypeFulfilled, OrderTypeUnfulfilled} {
		list := s.ordersBucketLocked(typ)
		for i := range *list {
			if (*list)[i].ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				break
			}
		}
	}
	if s.orders.inView != nil && s.orders.inView.ID == id {
		s.orders.inView = nil
	}
}

// fetchOrders issues the paged bucket fetch.
func (s *Store) fetchOrders(ctx context.Context, typ OrderType, page, limit int) ([]models.Order, int, error) {
	path := fmt.Sprintf("/orders?fulfilledStatus=%s&page=%d&limit=%d", typ, page, limit)
	var payload ordersPayload
	if err := s.api.Get(ctx, path, &payload, apiAuth()); err != nil {
		return nil, 0, fmt.Errorf("failed to load %s orders: %w", typ, err)
	}
	return payload.Orders, payload.Total, nil
}

func (s *Store) loadFulfilledOrdersPage(ctx context.Context, page, size int) (int, error) {
	return s.loadOrdersPage(ctx, OrderTypeFulfilled, page, size)
}

func (s *Store) loadUnfulfilledOrdersPage(ctx context.Context, page, size int) (int, error) {
	return s.loadOrdersPage(ctx, OrderTypeUnfulfilled, page, size)
}

func (s *Store) loadOrdersPage(ctx context.Context, typ OrderType, page, size int) (int, error) {
	orders, total, err := s.fetchOrders(ctx, typ, page, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.orders.status[typ] = StatusError
		s.orders.errs[string(typ)] = err.Error()
		return 0, err
	}
	*s.ordersBucketLocked(typ) = orders
	s.orders.status[typ] = StatusSuccess
	delete(s.orders.errs, string(typ))
	return total, nil
}

func (s *Store) publishOrderUpdated(ctx context.Context, o models.Order) {
	if s.events == nil {
		return
	}
	event := &models.OrderUpdatedEvent{
		BaseEvent: s.newBaseEvent(models.EventTypeOrderUpdated),
		Order:     o,
	}
	if err := s.events.PublishOrderUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderUpdated event", zap.Error(err))
	}
}

func (s *Store) publishOrderRefunded(ctx context.Context, id string) {
	if s.events == nil {
		return
	}
	event := &models.OrderRefundedEvent{
		BaseEvent: s.newBaseEvent(models.EventTypeOrderRefunded),
		OrderID:   id,
	}
	if err := s.events.PublishOrderRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderRefunded event", zap.Error(err))
	}
}

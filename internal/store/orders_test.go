package store

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(id, customer, fulfilled string, createdAt time.Time) models.Order {
	return models.Order{
		ID:              id,
		CustomerName:    customer,
		PaymentStatus:   models.PaymentStatusCompleted,
		DeliveryStatus:  models.DeliveryStatusPending,
		FulfilledStatus: fulfilled,
		Total:           100,
		CreatedAt:       createdAt,
	}
}

// ordersBackend serves the two bucket queries plus PATCH/DELETE on a
// single order, tracking request counts.
type ordersBackend struct {
	unfulfilled []models.Order
	fulfilled   []models.Order
	listCalls   int64
}

func (b *ordersBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.listCalls, 1)
		orders := b.unfulfilled
		if r.URL.Query().Get("fulfilledStatus") == "fulfilled" {
			orders = b.fulfilled
		}
		writeEnvelope(w, map[string]interface{}{"orders": orders, "total": len(orders)})
	})
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/orders/"):]
		switch r.Method {
		case http.MethodPatch:
			var updates OrderUpdates
			if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
				http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
				return
			}
			for _, list := range [][]models.Order{b.unfulfilled, b.fulfilled} {
				for _, o := range list {
					if o.ID != id {
						continue
					}
					if updates.DeliveryStatus != nil {
						o.DeliveryStatus = *updates.DeliveryStatus
					}
					if updates.FulfilledStatus != nil {
						o.FulfilledStatus = *updates.FulfilledStatus
					}
					writeEnvelope(w, o)
					return
				}
			}
			http.Error(w, `{"message":"order not found"}`, http.StatusNotFound)
		case http.MethodDelete:
			writeEnvelope(w, map[string]string{"status": "refunded"})
		default:
			for _, list := range [][]models.Order{b.unfulfilled, b.fulfilled} {
				for _, o := range list {
					if o.ID == id {
						writeEnvelope(w, o)
						return
					}
				}
			}
			http.Error(w, `{"message":"order not found"}`, http.StatusNotFound)
		}
	})
	return mux
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func TestLoadOrdersSkipsWhenAlreadyLoaded(t *testing.T) {
	backend := &ordersBackend{
		unfulfilled: []models.Order{testOrder("o1", "Ada", "unfulfilled", time.Now())},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	assert.EqualValues(t, 1, atomic.LoadInt64(&backend.listCalls))

	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, true, 0))
	assert.EqualValues(t, 2, atomic.LoadInt64(&backend.listCalls))
}

func TestLoadOrdersRejectsUnknownType(t *testing.T) {
	st, _ := newTestStore(t, nil)
	err := st.LoadOrders(context.Background(), OrderType("archived"), false, 0)
	assert.Error(t, err)
}

func TestLoadOrdersErrorRecordedPerBucket(t *testing.T) {
	st, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"backend down"}`, http.StatusInternalServerError)
	}))

	err := st.LoadOrders(context.Background(), OrderTypeUnfulfilled, false, 0)
	require.Error(t, err)

	errs := st.OrderErrors()
	assert.Contains(t, errs, "unfulfilled")
	assert.NotContains(t, errs, "fulfilled")
	assert.NotContains(t, errs, "single")
}

func TestUpdateOrderMovesBetweenBuckets(t *testing.T) {
	now := time.Now()
	backend := &ordersBackend{
		unfulfilled: []models.Order{
			testOrder("o1", "Ada", "unfulfilled", now),
			testOrder("o2", "Grace", "unfulfilled", now),
			testOrder("o3", "Edsger", "unfulfilled", now),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	require.NoError(t, st.LoadOrders(ctx, OrderTypeFulfilled, false, 0))

	require.NoError(t, st.FulfillOrder(ctx, "o2"))

	unfulfilled := st.Orders(OrderTypeUnfulfilled)
	fulfilled := st.Orders(OrderTypeFulfilled)
	require.Len(t, unfulfilled, 2)
	require.Len(t, fulfilled, 1)
	assert.Equal(t, "o2", fulfilled[0].ID)
	assert.Equal(t, models.FulfilledStatusFulfilled, fulfilled[0].FulfilledStatus)
}

func TestUpdateOrderValidatesStatuses(t *testing.T) {
	st, _ := newTestStore(t, nil)
	ctx := context.Background()

	bad := "teleported"
	err := st.UpdateOrder(ctx, "o1", OrderUpdates{DeliveryStatus: &bad})
	assert.Error(t, err)

	err = st.UpdateOrder(ctx, "o1", OrderUpdates{FulfilledStatus: &bad})
	assert.Error(t, err)
}

func TestUpdateOrderFailureRecordedUnderSingle(t *testing.T) {
	backend := &ordersBackend{}
	st, _ := newTestStore(t, backend.handler())

	shipped := models.DeliveryStatusShipped
	err := st.UpdateOrder(context.Background(), "missing", OrderUpdates{DeliveryStatus: &shipped})
	require.Error(t, err)
	assert.Contains(t, st.OrderErrors(), "single")
}

func TestRefundOrderRemovesFromBuckets(t *testing.T) {
	now := time.Now()
	backend := &ordersBackend{
		unfulfilled: []models.Order{
			testOrder("o1", "Ada", "unfulfilled", now),
			testOrder("o2", "Grace", "unfulfilled", now),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	_, err := st.LoadOrder(ctx, "o1")
	require.NoError(t, err)

	require.NoError(t, st.RefundOrder(ctx, "o1"))

	assert.Len(t, st.Orders(OrderTypeUnfulfilled), 1)
	_, ok := st.OrderInView()
	assert.False(t, ok, "refunded order should leave the detail view")
}

func TestLoadOrderPrefersLoadedBuckets(t *testing.T) {
	backend := &ordersBackend{
		unfulfilled: []models.Order{testOrder("o1", "Ada", "unfulfilled", time.Now())},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	calls := atomic.LoadInt64(&backend.listCalls)

	order, err := st.LoadOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", order.CustomerName)
	assert.EqualValues(t, calls, atomic.LoadInt64(&backend.listCalls))
}

func TestFilteredOrders(t *testing.T) {
	backend := &ordersBackend{
		unfulfilled: []models.Order{
			testOrder("aaa111", "Ada Lovelace", "unfulfilled", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)),
			testOrder("bbb222", "Grace Hopper", "unfulfilled", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)),
			testOrder("ccc333", "Edsger Dijkstra", "unfulfilled", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadOrders(context.Background(), OrderTypeUnfulfilled, false, 0))

	byName := st.FilteredOrders(OrderTypeUnfulfilled, OrderFilter{Query: "grace"})
	require.Len(t, byName, 1)
	assert.Equal(t, "bbb222", byName[0].ID)

	byShortID := st.FilteredOrders(OrderTypeUnfulfilled, OrderFilter{Query: "#CCC333"})
	require.Len(t, byShortID, 1)
	assert.Equal(t, "ccc333", byShortID[0].ID)

	inWindow := st.FilteredOrders(OrderTypeUnfulfilled, OrderFilter{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	require.Len(t, inWindow, 1)
	assert.Equal(t, "bbb222", inWindow[0].ID)

	ascending := st.FilteredOrders(OrderTypeUnfulfilled, OrderFilter{Ascending: true})
	require.Len(t, ascending, 3)
	assert.Equal(t, "aaa111", ascending[0].ID)
	descending := st.FilteredOrders(OrderTypeUnfulfilled, OrderFilter{})
	assert.Equal(t, "ccc333", descending[0].ID)
}

func TestApplyRemoteOrderRefund(t *testing.T) {
	backend := &ordersBackend{
		unfulfilled: []models.Order{
			testOrder("o1", "Ada", "unfulfilled", time.Now()),
			testOrder("o2", "Grace", "unfulfilled", time.Now()),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadOrders(context.Background(), OrderTypeUnfulfilled, false, 0))

	st.ApplyRemoteOrderRefund("o2")
	orders := st.Orders(OrderTypeUnfulfilled)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
}

func TestApplyRemoteOrderUpdateMovesBuckets(t *testing.T) {
	backend := &ordersBackend{
		unfulfilled: []models.Order{testOrder("o1", "Ada", "unfulfilled", time.Now())},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()
	require.NoError(t, st.LoadOrders(ctx, OrderTypeUnfulfilled, false, 0))
	require.NoError(t, st.LoadOrders(ctx, OrderTypeFulfilled, false, 0))

	updated := testOrder("o1", "Ada", models.FulfilledStatusFulfilled, time.Now())
	st.ApplyRemoteOrderUpdate(updated)

	assert.Empty(t, st.Orders(OrderTypeUnfulfilled))
	require.Len(t, st.Orders(OrderTypeFulfilled), 1)
}

func TestShortID(t *testing.T) {
	o := models.Order{ID: "64f1ab9827cd"}
	assert.Equal(t, "#9827CD", o.ShortID())

	short := models.Order{ID: "ab1"}
	assert.Equal(t, "#AB1", short.ShortID())
}

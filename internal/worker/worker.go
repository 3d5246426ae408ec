// Package worker reconciles this session's caches with edits made by
// other sessions, by consuming the storefront event topic.
package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// SyncWorker applies foreign-session order events to the bound store.
// Events carrying this session's id are skipped; local mutations were
// already committed by the store itself.
type SyncWorker struct {
	consumer *broker.Consumer
	handler  *broker.EventHandler
	logger   *zap.Logger
}

// NewSyncWorker wires the event handler to the store's remote-apply
// paths.
func NewSyncWorker(consumer *broker.Consumer, st *store.Store) *SyncWorker {
	handler := broker.NewEventHandler()
	logger := util.GetLogger()
	sessionID := st.SessionID()

	handler.OnOrderUpdated(func(_ context.Context, event *models.OrderUpdatedEvent) error {
		if event.SessionID == sessionID {
			return nil
		}
		logger.Info("Applying remote order update", zap.String("order_id", event.Order.ID))
		st.ApplyRemoteOrderUpdate(event.Order)
		return nil
	})

	handler.OnOrderRefunded(func(_ context.Context, event *models.OrderRefundedEvent) error {
		if event.SessionID == sessionID {
			return nil
		}
		logger.Info("Applying remote order refund", zap.String("order_id", event.OrderID))
		st.ApplyRemoteOrderRefund(event.OrderID)
		return nil
	})

	return &SyncWorker{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start starts consuming; blocks until ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sync worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker.
func (w *SyncWorker) Stop() error {
	w.logger.Info("Stopping sync worker")
	return w.consumer.Close()
}

// Package store holds the composed storefront state: cart, bookmarks,
// orders, products, categories and their pagination windows. It is the
// sole surface handlers read from and write through.
package store

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/persist"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadStatus tracks a slice's fetch lifecycle. Loads are skipped while
// a slice is loading or already successful (unless forced).
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusSuccess LoadStatus = "success"
	StatusError   LoadStatus = "error"
)

// Config carries store-level tunables.
type Config struct {
	// UserPageSize is what the UI paginates by; BackendPageSize is the
	// larger batch fetched from the backend per request.
	UserPageSize    int
	BackendPageSize int
	// SessionID identifies this session in published events; generated
	// when empty.
	SessionID string
}

// Store is the bound state container. All slices live behind one
// mutex; load-status flags are checked and flipped under it, so
// duplicate in-flight loads cannot race.
type Store struct {
	mu       sync.Mutex
	api      *apiclient.Client
	persist  *persist.Adapter
	notifier notify.Notifier
	events   *broker.EventPublisher
	payment  PaymentFunc
	tokens   apiclient.TokenSource
	logger   *zap.Logger
	cfg      Config

	sessionID string

	cart       cartState
	orders     orderState
	products   productState
	categories categoryState
	ui         uiState

	pages   map[PageTarget]*PageWindow
	loaders map[PageTarget]pageLoader
}

// New creates the bound store. events and payment may be nil when the
// deployment runs without kafka or a payment collaborator.
func New(
	api *apiclient.Client,
	adapter *persist.Adapter,
	notifier notify.Notifier,
	events *broker.EventPublisher,
	payment PaymentFunc,
	tokens apiclient.TokenSource,
	cfg Config,
) *Store {
	if cfg.UserPageSize <= 0 {
		cfg.UserPageSize = 12
	}
	if cfg.BackendPageSize <= 0 {
		cfg.BackendPageSize = 48
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	s := &Store{
		api:       api,
		persist:   adapter,
		notifier:  notifier,
		events:    events,
		payment:   payment,
		tokens:    tokens,
		logger:    util.GetLogger(),
		cfg:       cfg,
		sessionID: sessionID,
	}
	s.orders.status = map[OrderType]LoadStatus{
		OrderTypeFulfilled:   StatusIdle,
		OrderTypeUnfulfilled: StatusIdle,
	}
	s.orders.errs = make(map[string]string)
	s.products.status = StatusIdle
	s.categories.status = StatusIdle
	s.categories.visibleChild = make(map[string]string)

	s.pages = make(map[PageTarget]*PageWindow)
	s.loaders = map[PageTarget]pageLoader{
		PageProducts:          s.loadProductsPage,
		PageCategories:        s.loadCategoriesPage,
		PageFulfilledOrders:   s.loadFulfilledOrdersPage,
		PageUnfulfilledOrders: s.loadUnfulfilledOrdersPage,
	}
	for target := range s.loaders {
		s.pages[target] = &PageWindow{
			UserSize:    cfg.UserPageSize,
			BackendSize: cfg.BackendPageSize,
		}
	}
	return s
}

// SessionID returns this session's identity.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Hydrate loads the persisted slice (cart, cart visibility, bookmarks)
// into the store. Call once at startup.
func (s *Store) Hydrate(ctx context.Context) error {
	state, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.items = state.CartItems
	s.cart.inView = state.CartInView
	s.cart.bookmarks = state.BookMarks
	return nil
}

// persistLocked writes the tracked slice. Must be called with the
// mutex held so the write always sees the latest state. Storage
// failures are logged, never surfaced.
func (s *Store) persistLocked(ctx context.Context) {
	state := persist.State{
		CartItems:  append([]models.CartItem(nil), s.cart.items...),
		CartInView: s.cart.inView,
		BookMarks:  append([]models.Bookmark(nil), s.cart.bookmarks...),
	}
	if err := s.persist.Save(ctx, state); err != nil {
		s.logger.Warn("Failed to persist state", zap.Error(err))
	}
}

// apiAuth is the default option set for backend calls; every store
// action runs against the operator-authenticated API.
func apiAuth() apiclient.Options {
	return apiclient.Options{RequiresAuth: true}
}

func (s *Store) newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: s.sessionID,
		Timestamp: time.Now(),
	}
}

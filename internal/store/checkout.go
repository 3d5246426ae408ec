package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when checkout is attempted with no lines.
var ErrEmptyCart = errors.New("store: cart is empty")

// PaymentFunc is the payment collaborator: one call that runs the
// whole gateway protocol. Its internals are out of scope here.
type PaymentFunc func(ctx context.Context, form CheckoutForm, items []models.CartItem, totals CartTotals, accessToken string) error

// CheckoutForm carries the customer-entered checkout fields.
type CheckoutForm struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// ValidationError lists the offending checkout fields so the UI can
// render errors inline.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid checkout fields: " + strings.Join(e.Fields, ", ")
}

// Validate returns the names of missing or malformed fields.
func (f *CheckoutForm) Validate() []string {
	var fields []string
	required := []struct{ name, value string }{
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"email", f.Email},
		{"address", f.Address},
		{"city", f.City},
		{"country", f.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields = append(fields, r.name)
		}
	}
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		fields = append(fields, "email")
	}
	return fields
}

// Checkout validates the form, invokes the payment collaborator with a
// snapshot of the cart, and clears the cart only after payment
// succeeds. A failed payment leaves the cart untouched.
func (s *Store) Checkout(ctx context.Context, form CheckoutForm) error {
	ctx, span := util.StartSpan(ctx, "Store.Checkout")
	defer span.End()

	if fields := form.Validate(); len(fields) > 0 {
		util.CheckoutsTotal.WithLabelValues("invalid").Inc()
		return &ValidationError{Fields: fields}
	}
	if s.payment == nil {
		return errors.New("store: no payment collaborator configured")
	}

	s.mu.Lock()
	items := append([]models.CartItem(nil), s.cart.items...)
	totals := s.cartTotalsLocked()
	s.mu.Unlock()
	if len(items) == 0 {
		util.CheckoutsTotal.WithLabelValues("empty").Inc()
		return ErrEmptyCart
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve access token: %w", err)
	}

	err = s.notifier.Promise(ctx, notify.Messages{
		Loading: "Processing payment...",
		Success: "Payment complete",
		Error:   "Payment failed",
	}, func(ctx context.Context) error {
		if err := s.payment(ctx, form, items, totals, token); err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}

		s.mu.Lock()
		s.cart.items = nil
		s.persistLocked(ctx)
		s.mu.Unlock()

		s.publishCheckoutCompleted(ctx, items, totals)
		return nil
	})
	if err != nil {
		util.CheckoutsTotal.WithLabelValues("failed").Inc()
		return err
	}

	util.CheckoutsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Store) publishCheckoutCompleted(ctx context.Context, items []models.CartItem, totals CartTotals) {
	if s.events == nil {
		return
	}
	event := &models.CheckoutCompletedEvent{
		BaseEvent:      s.newBaseEvent(models.EventTypeCheckoutCompleted),
		IdempotencyKey: uuid.New().String(),
		Items:          items,
		Total:          totals.Subtotal,
	}
	if err := s.events.PublishCheckoutCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutCompleted event", zap.Error(err))
	}
}

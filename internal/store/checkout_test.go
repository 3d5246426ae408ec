package store

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCheckoutForm() CheckoutForm {
	return CheckoutForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "12 Analytical Way",
		City:      "London",
		Country:   "UK",
	}
}

func TestCheckoutValidation(t *testing.T) {
	st, _ := newTestStore(t, nil)

	form := validCheckoutForm()
	form.FirstName = ""
	form.Email = "not-an-email"

	err := st.Checkout(context.Background(), form)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "firstName")
	assert.Contains(t, vErr.Fields, "email")
}

func TestCheckoutEmptyCart(t *testing.T) {
	st, _ := newTestStore(t, nil)
	st.payment = func(context.Context, CheckoutForm, []models.CartItem, CartTotals, string) error {
		return nil
	}

	err := st.Checkout(context.Background(), validCheckoutForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	st, adapter := newTestStore(t, nil)
	ctx := context.Background()

	var gotItems []models.CartItem
	var gotToken string
	st.payment = func(_ context.Context, _ CheckoutForm, items []models.CartItem, _ CartTotals, token string) error {
		gotItems = items
		gotToken = token
		return nil
	}

	st.AddToCart(ctx, testProduct("p1", "Oversized Hoodie", 80))
	st.AddBookmark(ctx, testProduct("p2", "Cargo Pants", 65))

	require.NoError(t, st.Checkout(ctx, validCheckoutForm()))

	require.Len(t, gotItems, 1)
	assert.Equal(t, "test-token", gotToken)
	assert.Empty(t, st.CartItems())
	assert.Len(t, st.Bookmarks(), 1, "bookmarks survive checkout")

	// The cleared cart is what got persisted.
	persisted, err := adapter.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted.CartItems)
	assert.Len(t, persisted.BookMarks, 1)
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	st, _ := newTestStore(t, nil)
	ctx := context.Background()

	st.payment = func(context.Context, CheckoutForm, []models.CartItem, CartTotals, string) error {
		return errors.New("card declined")
	}

	st.AddToCart(ctx, testProduct("p1", "Oversized Hoodie", 80))

	err := st.Checkout(ctx, validCheckoutForm())
	require.Error(t, err)
	assert.Len(t, st.CartItems(), 1, "failed payment must not touch the cart")
}

func TestCheckoutWithoutPaymentCollaborator(t *testing.T) {
	st, _ := newTestStore(t, nil)
	err := st.Checkout(context.Background(), validCheckoutForm())
	assert.Error(t, err)
}

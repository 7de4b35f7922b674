package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/curecom/curecom/internal/session"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCart_SetHasRemove(t *testing.T) {
	cart := session.Cart{}

	assert.False(t, cart.Has(10))
	cart.Set(10, 2, dec("5.99"))
	assert.True(t, cart.Has(10))

	assert.True(t, cart.Remove(10))
	assert.False(t, cart.Has(10))
	assert.False(t, cart.Remove(10), "Removing a missing line reports false")
}

func TestCart_Totals(t *testing.T) {
	cart := session.Cart{}
	cart.Set(10, 2, dec("49.99"))
	cart.Set(11, 1, dec("0.02"))

	assert.Equal(t, "100.00", cart.Subtotal().StringFixed(2))
	assert.True(t, cart.Discount().IsZero(), "Session carts never carry a discount")
	assert.Equal(t, "100.00", cart.Total().StringFixed(2))
	assert.Equal(t, 2, cart.Count())
}

func TestStore_RoundTrip(t *testing.T) {
	store := session.NewStore("testsecret", 0)

	cart := session.Cart{}
	cart.Set(10, 3, dec("12.50"))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cart/add/10", nil)
	assert.NoError(t, store.SaveCart(rr, req, cart))

	cookies := rr.Result().Cookies()
	assert.NotEmpty(t, cookies, "Saving the cart must set the session cookie")

	req2 := httptest.NewRequest("GET", "/api/cart", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	loaded := store.GetCart(req2)
	assert.True(t, loaded.Has(10))
	assert.Equal(t, "37.50", loaded.Subtotal().StringFixed(2))
}

func TestStore_BrokenCookieBehavesLikeEmptyCart(t *testing.T) {
	store := session.NewStore("testsecret", 0)

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "curecom_session", Value: "garbage"})

	cart := store.GetCart(req)
	assert.Equal(t, 0, cart.Count())
}

func TestStore_DifferentSecretRejectsCookie(t *testing.T) {
	storeA := session.NewStore("secret-a", 0)
	storeB := session.NewStore("secret-b", 0)

	cart := session.Cart{}
	cart.Set(10, 1, dec("5.00"))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	assert.NoError(t, storeA.SaveCart(rr, req, cart))

	req2 := httptest.NewRequest("GET", "/", nil)
	for _, c := range rr.Result().Cookies() {
		req2.AddCookie(c)
	}
	loaded := storeB.GetCart(req2)
	assert.Equal(t, 0, loaded.Count(), "A cookie signed with another secret must not decode")
}

package session

import (
	"encoding/gob"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
)

const (
	sessionName = "curecom_session"
	cartKey     = "cart"
)

func init() {
	gob.Register(Cart{})
	gob.Register(Item{})
}

// Item is one anonymous-cart line: quantity plus the price snapshot taken
// when the product was added. Price travels as a string so the cookie stays
// stable across decimal representations.
type Item struct {
	Quantity int
	Price    string
}

// Cart is the anonymous visitor's cart, keyed by product id. It satisfies
// the same subtotal/discount/total contract as the persisted cart; coupons
// cannot be attached to it, so the discount is always zero.
type Cart map[string]Item

// Has reports whether the product is already in the cart.
func (c Cart) Has(productID int64) bool {
	_, ok := c[strconv.FormatInt(productID, 10)]
	return ok
}

// Set stores quantity and price snapshot for a product.
func (c Cart) Set(productID int64, quantity int, price decimal.Decimal) {
	c[strconv.FormatInt(productID, 10)] = Item{Quantity: quantity, Price: price.String()}
}

// Remove deletes a product line, reporting whether it existed.
func (c Cart) Remove(productID int64) bool {
	key := strconv.FormatInt(productID, 10)
	if _, ok := c[key]; !ok {
		return false
	}
	delete(c, key)
	return true
}

// Subtotal is the sum over lines of snapshot-price × quantity.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			continue // malformed cookie line, skip it
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Discount is always zero: anonymous carts cannot hold coupons.
func (c Cart) Discount() decimal.Decimal {
	return decimal.Zero
}

// Total is subtotal − discount.
func (c Cart) Total() decimal.Decimal {
	return c.Subtotal().Sub(c.Discount())
}

// Count returns the number of lines.
func (c Cart) Count() int {
	return len(c)
}

// Store keeps anonymous carts in a signed session cookie.
type Store struct {
	store *sessions.CookieStore
}

// NewStore builds the cookie store from the session secret. maxAge is in
// seconds; non-positive values fall back to 30 days.
func NewStore(secret string, maxAge int) *Store {
	if maxAge <= 0 {
		maxAge = 86400 * 30
	}
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	}
	return &Store{store: cs}
}

// GetCart loads the visitor's cart from the request session, returning an
// empty cart when none exists yet.
func (s *Store) GetCart(r *http.Request) Cart {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		// a broken or tampered cookie behaves like an empty cart
		return Cart{}
	}
	if cart, ok := sess.Values[cartKey].(Cart); ok {
		return cart
	}
	return Cart{}
}

// SaveCart writes the cart back into the session. Every cart mutation must
// end with a save, which is what marks the session as modified.
func (s *Store) SaveCart(w http.ResponseWriter, r *http.Request, cart Cart) error {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		sess, err = s.store.New(r, sessionName)
		if err != nil {
			return err
		}
	}
	sess.Values[cartKey] = cart
	return sess.Save(r, w)
}

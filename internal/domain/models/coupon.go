package models

import "time"

// Coupon is a named, time-bounded percentage discount. Discount is the
// integer percentage as issued; range checks happen at apply time because
// the issuing side does not reliably enforce the upper bound.
type Coupon struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Discount  int       `json:"discount"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
	Active    bool      `json:"active"`
}

// ValidAt reports whether the coupon may be applied at the given moment:
// active, inside its validity window and with a sane percentage.
func (c *Coupon) ValidAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return false
	}
	return c.Discount >= 0 && c.Discount <= 100
}

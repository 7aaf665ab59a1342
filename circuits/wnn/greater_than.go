package wnn

import (
	"github.com/consensys/gnark/frontend"
)

// Checked is a witness already range checked into [0, 255]. Comparing it again
// reuses the same wire.
type Checked struct {
	v frontend.Variable
}

func (c Checked) Variable() frontend.Variable {
	return c.v
}

// Comparator evaluates strict greater-than over 8-bit values.
type Comparator struct {
	api frontend.API
	rc  *RangeChecker
}

func NewComparator(api frontend.API, rc *RangeChecker) *Comparator {
	return &Comparator{api: api, rc: rc}
}

// GreaterThan range checks v and returns it as a handle together with the bit v > t.
func (c *Comparator) GreaterThan(v frontend.Variable, t uint8) (Checked, frontend.Variable) {
	c.rc.AssertInRange(v, 8)
	h := Checked{v: v}
	return h, c.GreaterThanCopy(h, t)
}

// GreaterThanCopy returns v > t for a value checked by an earlier GreaterThan.
func (c *Comparator) GreaterThanCopy(h Checked, t uint8) frontend.Variable {
	api := c.api
	res, err := api.Compiler().NewHint(greaterThanHint, 1, h.v, t)
	if err != nil {
		panic(err)
	}
	bit := res[0]
	api.AssertIsBoolean(bit)

	// d = v-t-1 if bit else t-v; both lie in [0, 255] exactly when bit is right
	ti := int(t)
	d := api.Add(api.Mul(bit, api.Sub(api.Mul(h.v, 2), 2*ti+1)), ti, api.Neg(h.v))
	c.rc.AssertInRange(d, 8)
	return bit
}

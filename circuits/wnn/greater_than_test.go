package wnn

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type comparatorCircuit struct {
	V     frontend.Variable
	Fresh frontend.Variable `gnark:",public"`
	Copy  frontend.Variable `gnark:",public"`

	T uint8 `gnark:"-"`
}

func (c *comparatorCircuit) Define(api frontend.API) error {
	rc, err := NewRangeChecker(api, DefaultLimbBits)
	if err != nil {
		return err
	}
	cmp := NewComparator(api, rc)
	h, fresh := cmp.GreaterThan(c.V, c.T)
	api.AssertIsEqual(fresh, c.Fresh)
	api.AssertIsEqual(cmp.GreaterThanCopy(h, c.T), c.Copy)
	return nil
}

func TestGreaterThan(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()
	values := []uint8{0, 1, 127, 128, 254, 255}

	for _, v := range values {
		for _, th := range values {
			want := 0
			if v > th {
				want = 1
			}
			err := test.IsSolved(&comparatorCircuit{T: th}, &comparatorCircuit{V: v, Fresh: want, Copy: want}, field)
			assert.NoError(err, "v=%d t=%d", v, th)

			err = test.IsSolved(&comparatorCircuit{T: th}, &comparatorCircuit{V: v, Fresh: 1 - want, Copy: 1 - want}, field)
			assert.Error(err, "v=%d t=%d", v, th)
		}
	}
}

func TestGreaterThanOutOfRange(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	err := test.IsSolved(&comparatorCircuit{T: 10}, &comparatorCircuit{V: 256, Fresh: 1, Copy: 1}, field)
	assert.Error(err)
	err = test.IsSolved(&comparatorCircuit{T: 10}, &comparatorCircuit{V: -1, Fresh: 1, Copy: 1}, field)
	assert.Error(err)
}

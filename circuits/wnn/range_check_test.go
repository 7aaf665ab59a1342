package wnn

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type rangeCircuit struct {
	V frontend.Variable

	Bits  int    `gnark:"-"`
	Bound uint64 `gnark:"-"`
}

func (c *rangeCircuit) Define(api frontend.API) error {
	rc, err := NewRangeChecker(api, DefaultLimbBits)
	if err != nil {
		return err
	}
	rc.AssertInRange(c.V, c.Bits)
	if c.Bound != 0 {
		rc.AssertLessThan(c.V, c.Bound)
	}
	return nil
}

func TestRangeChecker(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	cases := []struct {
		bits  int
		bound uint64
		ok    []frontend.Variable
		fail  []frontend.Variable
	}{
		{bits: 8, ok: []frontend.Variable{0, 1, 255}, fail: []frontend.Variable{256, -1}},
		{bits: 3, ok: []frontend.Variable{0, 7}, fail: []frontend.Variable{8, 255}},
		{bits: 12, ok: []frontend.Variable{0, 256, 4095}, fail: []frontend.Variable{4096, 65535}},
		{bits: 21, ok: []frontend.Variable{1<<21 - 1}, fail: []frontend.Variable{1 << 21}},
		{bits: 8, bound: 1, ok: []frontend.Variable{0}, fail: []frontend.Variable{1}},
		{bits: 12, bound: 1000, ok: []frontend.Variable{0, 999}, fail: []frontend.Variable{1000, 1023}},
		{bits: 12, bound: 1024, ok: []frontend.Variable{1023}, fail: []frontend.Variable{1024}},
		{bits: 21, bound: 1<<21 - 9, ok: []frontend.Variable{1<<21 - 10}, fail: []frontend.Variable{1<<21 - 9, 1<<21 - 1}},
	}

	for _, tc := range cases {
		for _, v := range tc.ok {
			err := test.IsSolved(&rangeCircuit{Bits: tc.bits, Bound: tc.bound}, &rangeCircuit{V: v}, field)
			assert.NoError(err, "bits=%d bound=%d v=%v", tc.bits, tc.bound, v)
		}
		for _, v := range tc.fail {
			err := test.IsSolved(&rangeCircuit{Bits: tc.bits, Bound: tc.bound}, &rangeCircuit{V: v}, field)
			assert.Error(err, "bits=%d bound=%d v=%v", tc.bits, tc.bound, v)
		}
	}
}

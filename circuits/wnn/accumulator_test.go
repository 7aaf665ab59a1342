package wnn

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"

	"gnark-wnn/utils"
)

type accumulatorCircuit struct {
	Responses []frontend.Variable
	Sum       frontend.Variable `gnark:",public"`
}

func (c *accumulatorCircuit) Define(api frontend.API) error {
	for _, r := range c.Responses {
		api.AssertIsBoolean(r)
	}
	api.AssertIsEqual(NewAccumulator(api).Accumulate(c.Responses), c.Sum)
	return nil
}

func TestAccumulate(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	cases := []struct {
		responses []bool
		sum       int
	}{
		{nil, 0},
		{[]bool{true, true, true, true, true, true, true}, 7},
		{[]bool{false, false, false}, 0},
		{[]bool{true, false, true, true, false}, 3},
	}
	for _, tc := range cases {
		n := len(tc.responses)
		assignment := &accumulatorCircuit{Responses: utils.BoolsToVariables(tc.responses), Sum: tc.sum}
		assert.NoError(test.IsSolved(&accumulatorCircuit{Responses: make([]frontend.Variable, n)}, assignment, field))

		assignment = &accumulatorCircuit{Responses: utils.BoolsToVariables(tc.responses), Sum: tc.sum + 1}
		assert.Error(test.IsSolved(&accumulatorCircuit{Responses: make([]frontend.Variable, n)}, assignment, field))
	}
}

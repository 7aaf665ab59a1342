package wnn

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/stretchr/testify/require"

	"gnark-wnn/utils"
)

// solveWith compiles circuit for plonk and solves assignment with opts applied.
func solveWith(t *testing.T, circuit, assignment frontend.Circuit, opts ...solver.Option) error {
	field := ecc.BN254.ScalarField()
	ccs, err := frontend.Compile(field, scs.NewBuilder, circuit)
	require.NoError(t, err)
	w, err := frontend.NewWitness(assignment, field)
	require.NoError(t, err)
	_, err = ccs.Solve(w, opts...)
	return err
}

func flippedGreaterThan(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if err := greaterThanHint(field, inputs, outputs); err != nil {
		return err
	}
	outputs[0].Sub(big.NewInt(1), outputs[0])
	return nil
}

func TestComparatorRejectsWrongBit(t *testing.T) {
	lie := solver.OverrideHint(solver.GetHintID(greaterThanHint), flippedGreaterThan)

	cases := []struct {
		v    uint8
		t    uint8
		want int
	}{
		{v: 50, t: 100, want: 0},
		{v: 150, t: 100, want: 1},
		{v: 100, t: 100, want: 0},
		{v: 255, t: 0, want: 1},
	}
	for _, tc := range cases {
		honest := &comparatorCircuit{V: tc.v, Fresh: tc.want, Copy: tc.want}
		require.NoError(t, solveWith(t, &comparatorCircuit{T: tc.t}, honest), "v=%d t=%d", tc.v, tc.t)

		lying := &comparatorCircuit{V: tc.v, Fresh: 1 - tc.want, Copy: 1 - tc.want}
		require.Error(t, solveWith(t, &comparatorCircuit{T: tc.t}, lying, lie), "v=%d t=%d", tc.v, tc.t)
	}
}

// shiftedCubeMod returns (q-1, y+p), which still satisfies x^3 = q*p + y.
func shiftedCubeMod(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if err := cubeModHint(field, inputs, outputs); err != nil {
		return err
	}
	outputs[0].Sub(outputs[0], big.NewInt(1))
	outputs[1].Add(outputs[1], inputs[0])
	return nil
}

func TestHasherRejectsUnreducedOutput(t *testing.T) {
	lie := solver.OverrideHint(solver.GetHintID(cubeModHint), shiftedCubeMod)
	p := new(big.Int).SetUint64(testHashConfig.Hash.P)

	for _, x := range []int64{2117, 30177, 3} {
		y := utils.CubeMod(big.NewInt(x), p)
		honest := &hashCircuit{X: x, Y: y, Windows: utils.Uint64sToVariables(utils.DecomposeWord(y, 2, 10))}
		require.NoError(t, solveWith(t, newHashCircuit(testHashConfig), honest), "x=%d", x)

		unreduced := new(big.Int).Add(y, p)
		lying := &hashCircuit{X: x, Y: unreduced, Windows: utils.Uint64sToVariables(utils.DecomposeWord(unreduced, 2, 10))}
		require.Error(t, solveWith(t, newHashCircuit(testHashConfig), lying, lie), "x=%d", x)
	}
}

// carriedLimbs moves one unit of the second limb into the first, keeping the
// recomposition intact while the first limb leaves its range.
func carriedLimbs(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if err := limbsHint(field, inputs, outputs); err != nil {
		return err
	}
	if len(outputs) < 2 || outputs[1].Sign() == 0 {
		return nil
	}
	outputs[0].Add(outputs[0], new(big.Int).Lsh(big.NewInt(1), uint(inputs[0].Uint64())))
	outputs[1].Sub(outputs[1], big.NewInt(1))
	return nil
}

func TestRangeCheckerRejectsCarriedLimbs(t *testing.T) {
	lie := solver.OverrideHint(solver.GetHintID(limbsHint), carriedLimbs)

	for _, v := range []int{4095, 256, 1000} {
		require.NoError(t, solveWith(t, &rangeCircuit{Bits: 12}, &rangeCircuit{V: v}), "v=%d", v)
		require.Error(t, solveWith(t, &rangeCircuit{Bits: 12}, &rangeCircuit{V: v}, lie), "v=%d", v)
	}
}

package wnn

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark/constraint/solver"
)

func init() {
	solver.RegisterHint(GetHints()...)
}

// GetHints returns all hint functions used in this package. Provers running
// outside this process must register them before solving.
func GetHints() []solver.Hint {
	return []solver.Hint{
		greaterThanHint,
		cubeModHint,
		limbsHint,
	}
}

// greaterThanHint outputs 1 if inputs[0] > inputs[1] and 0 otherwise.
func greaterThanHint(_ *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 || len(outputs) != 1 {
		return errors.New("greaterThanHint expects 2 inputs and 1 output")
	}
	if inputs[0].Cmp(inputs[1]) > 0 {
		outputs[0].SetUint64(1)
	} else {
		outputs[0].SetUint64(0)
	}
	return nil
}

// cubeModHint takes (p, x) and outputs (q, y) with x^3 = q*p + y, 0 <= y < p.
func cubeModHint(_ *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 || len(outputs) != 2 {
		return errors.New("cubeModHint expects 2 inputs and 2 outputs")
	}
	if inputs[0].Sign() == 0 {
		return errors.New("cubeModHint: zero modulus")
	}
	cube := new(big.Int).Exp(inputs[1], big.NewInt(3), nil)
	outputs[0].QuoRem(cube, inputs[0], outputs[1])
	return nil
}

// limbsHint takes (limbBits, v) and splits v into little-endian limbs of
// limbBits each. The last output receives all remaining high bits.
func limbsHint(_ *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 || len(outputs) == 0 {
		return errors.New("limbsHint expects 2 inputs and at least 1 output")
	}
	limbBits := uint(inputs[0].Uint64())
	mask := new(big.Int).Lsh(big.NewInt(1), limbBits)
	mask.Sub(mask, big.NewInt(1))

	v := new(big.Int).Set(inputs[1])
	last := len(outputs) - 1
	for i := 0; i < last; i++ {
		outputs[i].And(v, mask)
		v.Rsh(v, limbBits)
	}
	outputs[last].Set(v)
	return nil
}

package wnn

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
)

const DefaultLimbBits = 8

// RangeChecker asserts bounded ranges through a lookup table holding
// [0, 2^limbBits). A value outside the checked range leaves the circuit
// unsatisfiable.
type RangeChecker struct {
	api      frontend.API
	table    *logderivlookup.Table
	limbBits int
}

func NewRangeChecker(api frontend.API, limbBits int) (*RangeChecker, error) {
	if limbBits <= 0 || limbBits > 16 || limbBits >= api.Compiler().FieldBitLen() {
		return nil, fmt.Errorf("%w: range table width %d out of range", ErrConfiguration, limbBits)
	}
	table := logderivlookup.New(api)
	for i := 0; i < 1<<limbBits; i++ {
		table.Insert(i)
	}
	return &RangeChecker{api: api, table: table, limbBits: limbBits}, nil
}

// AssertInRange asserts 0 <= v < 2^nbBits.
func (rc *RangeChecker) AssertInRange(v frontend.Variable, nbBits int) {
	switch {
	case nbBits <= 0:
		rc.api.AssertIsEqual(v, 0)
	case nbBits == rc.limbBits:
		rc.table.Lookup(v)
	case nbBits < rc.limbBits:
		// v < 2^limbBits and v*2^(limbBits-nbBits) < 2^limbBits
		rc.table.Lookup(v, rc.api.Mul(v, 1<<(rc.limbBits-nbBits)))
	default:
		if nbBits >= rc.api.Compiler().FieldBitLen() {
			panic(fmt.Sprintf("range check of %d bits exceeds the field", nbBits))
		}
		nbLimbs := (nbBits + rc.limbBits - 1) / rc.limbBits
		limbs, err := rc.api.Compiler().NewHint(limbsHint, nbLimbs, rc.limbBits, v)
		if err != nil {
			panic(err)
		}
		var acc frontend.Variable = 0
		for i, limb := range limbs {
			if i == nbLimbs-1 {
				rc.AssertInRange(limb, nbBits-i*rc.limbBits)
			} else {
				rc.table.Lookup(limb)
			}
			shift := new(big.Int).Lsh(big.NewInt(1), uint(i*rc.limbBits))
			acc = rc.api.Add(acc, rc.api.Mul(limb, shift))
		}
		rc.api.AssertIsEqual(acc, v)
	}
}

// AssertLessThan asserts 0 <= v < bound. bound must be positive.
func (rc *RangeChecker) AssertLessThan(v frontend.Variable, bound uint64) {
	if bound == 0 {
		panic("AssertLessThan: empty range")
	}
	nbBits := bits.Len64(bound - 1)
	rc.AssertInRange(v, nbBits)
	if nbBits < 64 && bound == 1<<nbBits {
		return
	}
	rc.AssertInRange(rc.api.Sub(bound-1, v), nbBits)
}

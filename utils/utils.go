package utils

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// DecomposeWord returns the numWindows*windowBits least significant bits of word
// split into little-endian windows of windowBits each.
func DecomposeWord(word *big.Int, numWindows, windowBits int) []uint64 {
	res := make([]uint64, numWindows)
	mask := new(big.Int).Lsh(big.NewInt(1), uint(windowBits))
	mask.Sub(mask, big.NewInt(1))
	w := new(big.Int)
	for i := 0; i < numWindows; i++ {
		w.Rsh(word, uint(i*windowBits))
		w.And(w, mask)
		res[i] = w.Uint64()
	}
	return res
}

// CubeMod computes x^3 mod p
func CubeMod(x, p *big.Int) *big.Int {
	return new(big.Int).Exp(x, big.NewInt(3), p)
}

func BoolsToVariables(bs []bool) []frontend.Variable {
	res := make([]frontend.Variable, len(bs))
	for i, b := range bs {
		if b {
			res[i] = 1
		} else {
			res[i] = 0
		}
	}
	return res
}

func Uint64sToVariables(vs []uint64) []frontend.Variable {
	res := make([]frontend.Variable, len(vs))
	for i, v := range vs {
		res[i] = v
	}
	return res
}

func BytesToVariables(image [][]uint8) [][]frontend.Variable {
	res := make([][]frontend.Variable, len(image))
	for i, row := range image {
		res[i] = make([]frontend.Variable, len(row))
		for j, px := range row {
			res[i][j] = px
		}
	}
	return res
}

package wnn

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	gnarkbits "github.com/consensys/gnark/std/math/bits"
)

type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
)

// BitComposer converts between fixed length bit sequences and field elements.
type BitComposer struct {
	api     frontend.API
	numBits int
}

// NewBitComposer fails if numBits could overflow the native field.
func NewBitComposer(api frontend.API, numBits int) (*BitComposer, error) {
	capacity := api.Compiler().FieldBitLen() - 1
	if numBits <= 0 || numBits > capacity {
		return nil, fmt.Errorf("%w: cannot compose %d bits, field capacity is %d", ErrConfiguration, numBits, capacity)
	}
	return &BitComposer{api: api, numBits: numBits}, nil
}

func (bc *BitComposer) NumBits() int {
	return bc.numBits
}

// Compose returns sum(bits[i] * 2^(n-1-i)) for BigEndian. LittleEndian reads
// the first bit as the least significant one.
func (bc *BitComposer) Compose(in []frontend.Variable, e Endianness) (frontend.Variable, error) {
	if len(in) != bc.numBits {
		return nil, fmt.Errorf("%w: expected %d bits, got %d", ErrConfiguration, bc.numBits, len(in))
	}
	if e == LittleEndian {
		reversed := make([]frontend.Variable, len(in))
		for i := range in {
			reversed[len(in)-1-i] = in[i]
		}
		return bc.Compose(reversed, BigEndian)
	}

	var acc frontend.Variable = 0
	for _, b := range in {
		acc = bc.api.Add(bc.api.Mul(acc, 2), b)
	}
	return acc, nil
}

// Decompose returns the constrained numBits bit decomposition of v.
func (bc *BitComposer) Decompose(v frontend.Variable, e Endianness) []frontend.Variable {
	res := gnarkbits.ToBinary(bc.api, v, gnarkbits.WithNbDigits(bc.numBits))
	if e == BigEndian {
		for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
			res[i], res[j] = res[j], res[i]
		}
	}
	return res
}

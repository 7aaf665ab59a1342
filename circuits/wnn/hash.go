package wnn

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

type HashOutput struct {
	// Value is x^3 mod p.
	Value frontend.Variable
	// Windows are the NHashes little-endian BitsPerHash wide windows of Value.
	Windows []frontend.Variable
}

// Hasher maps x to x^3 mod p and splits the result into bloom filter indices.
type Hasher struct {
	api frontend.API
	rc  *RangeChecker
	cfg Config
}

func NewHasher(api frontend.API, rc *RangeChecker, cfg Config) (*Hasher, error) {
	if err := cfg.Validate(api.Compiler().FieldBitLen()); err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("%w: hasher needs a range checker", ErrConfiguration)
	}
	return &Hasher{api: api, rc: rc, cfg: cfg}, nil
}

func (h *Hasher) Hash(x frontend.Variable) HashOutput {
	api := h.api
	p := h.cfg.Hash.P

	h.rc.AssertInRange(x, h.cfg.Hash.NBits)

	res, err := api.Compiler().NewHint(cubeModHint, 2, p, x)
	if err != nil {
		panic(err)
	}
	q, y := res[0], res[1]
	api.AssertIsEqual(api.Mul(x, x, x), api.Add(api.Mul(q, p), y))
	h.rc.AssertInRange(q, h.cfg.Hash.quotientBits())
	h.rc.AssertLessThan(y, p)

	return HashOutput{Value: y, Windows: h.windows(y)}
}

func (h *Hasher) windows(y frontend.Variable) []frontend.Variable {
	api := h.api
	n, w := h.cfg.Bloom.NHashes, h.cfg.Bloom.BitsPerHash

	limbs, err := api.Compiler().NewHint(limbsHint, n+1, w, y)
	if err != nil {
		panic(err)
	}
	var acc frontend.Variable = 0
	for i := 0; i < n; i++ {
		h.rc.AssertInRange(limbs[i], w)
		acc = api.Add(acc, api.Mul(limbs[i], uint64(1)<<(i*w)))
	}
	h.rc.AssertInRange(limbs[n], h.cfg.Hash.L-n*w)
	acc = api.Add(acc, api.Mul(limbs[n], uint64(1)<<(n*w)))
	api.AssertIsEqual(acc, y)

	return limbs[:n]
}

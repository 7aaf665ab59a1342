package wnn

import "github.com/consensys/gnark/frontend"

type Accumulator struct {
	api frontend.API
}

func NewAccumulator(api frontend.API) *Accumulator {
	return &Accumulator{api: api}
}

// Accumulate returns the number of set responses.
func (a *Accumulator) Accumulate(responses []frontend.Variable) frontend.Variable {
	var acc frontend.Variable = 0
	for _, r := range responses {
		acc = a.api.Add(acc, r)
	}
	return acc
}

// Package model holds the parameters of a BTHOWeN-style weightless neural network
// and a plain reference implementation of its inference.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"golang.org/x/crypto/blake2b"
)

var ErrInvalidModel = errors.New("invalid model")

// MaxThreshold is the quantized threshold no 8-bit intensity can reach.
const MaxThreshold = 256

type Params struct {
	NumClasses       int    `json:"num_classes"`
	NumInputs        int    `json:"num_inputs"`
	BitsPerInput     int    `json:"bits_per_input"`
	NumFilterInputs  int    `json:"num_filter_inputs"`
	NumFilterEntries int    `json:"num_filter_entries"`
	NumFilterHashes  int    `json:"num_filter_hashes"`
	P                uint64 `json:"p"`
	// HashBits is the hash output width l. Zero means bitlen(P).
	HashBits int `json:"hash_bits,omitempty"`
}

// NumInputBits is the length of the binarized (and permuted) input.
func (p Params) NumInputBits() int {
	return p.NumInputs * p.BitsPerInput
}

// NumFilters is the number of bloom filters per class.
func (p Params) NumFilters() int {
	if p.NumFilterInputs == 0 {
		return 0
	}
	return p.NumInputBits() / p.NumFilterInputs
}

// BitsPerHash is log2 of the number of bloom filter entries.
func (p Params) BitsPerHash() int {
	return bits.Len(uint(p.NumFilterEntries)) - 1
}

// OutputBits is the hash output width l.
func (p Params) OutputBits() int {
	if p.HashBits != 0 {
		return p.HashBits
	}
	return bits.Len64(p.P)
}

func (p Params) Validate() error {
	switch {
	case p.NumClasses <= 0:
		return fmt.Errorf("%w: num_classes must be positive, got %d", ErrInvalidModel, p.NumClasses)
	case p.NumInputs <= 0:
		return fmt.Errorf("%w: num_inputs must be positive, got %d", ErrInvalidModel, p.NumInputs)
	case p.BitsPerInput <= 0:
		return fmt.Errorf("%w: bits_per_input must be positive, got %d", ErrInvalidModel, p.BitsPerInput)
	case p.NumFilterInputs <= 0:
		return fmt.Errorf("%w: num_filter_inputs must be positive, got %d", ErrInvalidModel, p.NumFilterInputs)
	case p.NumFilterHashes <= 0:
		return fmt.Errorf("%w: num_filter_hashes must be positive, got %d", ErrInvalidModel, p.NumFilterHashes)
	case p.P < 2:
		return fmt.Errorf("%w: modulus p must be at least 2, got %d", ErrInvalidModel, p.P)
	}
	if p.NumFilterEntries < 2 || p.NumFilterEntries&(p.NumFilterEntries-1) != 0 {
		return fmt.Errorf("%w: num_filter_entries must be a power of two, got %d", ErrInvalidModel, p.NumFilterEntries)
	}
	if p.NumInputBits()%p.NumFilterInputs != 0 {
		return fmt.Errorf("%w: num_filter_inputs %d does not divide the %d input bits", ErrInvalidModel, p.NumFilterInputs, p.NumInputBits())
	}
	l := p.OutputBits()
	if l <= 0 || l > 63 {
		return fmt.Errorf("%w: hash output width %d out of range", ErrInvalidModel, l)
	}
	if l < bits.Len64(p.P-1) {
		return fmt.Errorf("%w: 2^%d is smaller than p=%d", ErrInvalidModel, l, p.P)
	}
	if p.NumFilterHashes*p.BitsPerHash() > l {
		return fmt.Errorf("%w: %d hashes of %d bits exceed the %d hash output bits", ErrInvalidModel, p.NumFilterHashes, p.BitsPerHash(), l)
	}
	return nil
}

type Model struct {
	Params
	// BloomFilters is indexed [class][filter][entry].
	BloomFilters [][][]bool `json:"bloom_filters"`
	// Thresholds is indexed [row][col][bit] and already quantized to [0, 256].
	Thresholds [][][]uint16 `json:"binarization_thresholds"`
	InputOrder []uint64     `json:"input_order"`
}

// New assembles a model and validates it.
func New(params Params, bloomFilters [][][]bool, thresholds [][][]uint16, inputOrder []uint64) (*Model, error) {
	m := &Model{
		Params:       params,
		BloomFilters: bloomFilters,
		Thresholds:   thresholds,
		InputOrder:   inputOrder,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) Rows() int {
	return len(m.Thresholds)
}

func (m *Model) Cols() int {
	if len(m.Thresholds) == 0 {
		return 0
	}
	return len(m.Thresholds[0])
}

// Validate cross-checks every tensor shape against the parameters.
func (m *Model) Validate() error {
	if err := m.Params.Validate(); err != nil {
		return err
	}

	nFilters := m.NumFilters()
	if len(m.BloomFilters) != m.NumClasses {
		return fmt.Errorf("%w: bloom filters have %d classes, expected %d", ErrInvalidModel, len(m.BloomFilters), m.NumClasses)
	}
	for c, filters := range m.BloomFilters {
		if len(filters) != nFilters {
			return fmt.Errorf("%w: class %d has %d filters, expected %d", ErrInvalidModel, c, len(filters), nFilters)
		}
		for f, entries := range filters {
			if len(entries) != m.NumFilterEntries {
				return fmt.Errorf("%w: filter [%d][%d] has %d entries, expected %d", ErrInvalidModel, c, f, len(entries), m.NumFilterEntries)
			}
		}
	}

	rows, cols := m.Rows(), m.Cols()
	if rows*cols != m.NumInputs {
		return fmt.Errorf("%w: thresholds cover %dx%d pixels, expected %d inputs", ErrInvalidModel, rows, cols, m.NumInputs)
	}
	for i, row := range m.Thresholds {
		if len(row) != cols {
			return fmt.Errorf("%w: threshold row %d has %d columns, expected %d", ErrInvalidModel, i, len(row), cols)
		}
		for j, px := range row {
			if len(px) != m.BitsPerInput {
				return fmt.Errorf("%w: pixel (%d, %d) has %d thresholds, expected %d", ErrInvalidModel, i, j, len(px), m.BitsPerInput)
			}
			for b, t := range px {
				if t > MaxThreshold {
					return fmt.Errorf("%w: threshold (%d, %d, %d) = %d exceeds %d", ErrInvalidModel, i, j, b, t, MaxThreshold)
				}
			}
		}
	}

	return validatePermutation(m.InputOrder, m.NumInputBits())
}

func validatePermutation(order []uint64, n int) error {
	if len(order) != n {
		return fmt.Errorf("%w: input order has length %d, expected %d", ErrInvalidModel, len(order), n)
	}
	seen := make([]bool, n)
	for k, idx := range order {
		if idx >= uint64(n) {
			return fmt.Errorf("%w: input order[%d] = %d out of range", ErrInvalidModel, k, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: input order repeats index %d", ErrInvalidModel, idx)
		}
		seen[idx] = true
	}
	return nil
}

// Quantize maps a normalized threshold to the smallest intensity satisfying it.
// Intensities are 8-bit, so intensity >= v <=> intensity >= ceil(255*v).
func Quantize(v float32) uint16 {
	scaled := float64(float32(255 * v))
	q := math.Ceil(scaled)
	if math.IsNaN(q) || q < 0 {
		return 0
	}
	if q > MaxThreshold {
		return MaxThreshold
	}
	return uint16(q)
}

// Digest is a blake2b-256 fingerprint of the model parameters.
func (m *Model) Digest() ([32]byte, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(buf), nil
}

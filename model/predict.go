package model

import (
	"fmt"
	"math/big"

	"gnark-wnn/utils"
)

// CheckImage verifies the image matches the model's input grid.
func (m *Model) CheckImage(image [][]uint8) error {
	if len(image) != m.Rows() {
		return fmt.Errorf("%w: image has %d rows, expected %d", ErrInvalidModel, len(image), m.Rows())
	}
	for i, row := range image {
		if len(row) != m.Cols() {
			return fmt.Errorf("%w: image row %d has %d columns, expected %d", ErrInvalidModel, i, len(row), m.Cols())
		}
	}
	return nil
}

// Binarize thresholds every pixel once per bit-plane. Bits are ordered
// plane-major, then row, then column.
func (m *Model) Binarize(image [][]uint8) ([]bool, error) {
	if err := m.CheckImage(image); err != nil {
		return nil, err
	}
	res := make([]bool, 0, m.NumInputBits())
	for b := 0; b < m.BitsPerInput; b++ {
		for i := 0; i < m.Rows(); i++ {
			for j := 0; j < m.Cols(); j++ {
				res = append(res, uint16(image[i][j]) >= m.Thresholds[i][j][b])
			}
		}
	}
	return res, nil
}

// JointInputs permutes the binarized bits and composes every group of
// NumFilterInputs bits, least significant first.
func (m *Model) JointInputs(bits []bool) []uint64 {
	res := make([]uint64, 0, m.NumFilters())
	for f := 0; f < m.NumFilters(); f++ {
		var x uint64
		for k := 0; k < m.NumFilterInputs; k++ {
			if bits[m.InputOrder[f*m.NumFilterInputs+k]] {
				x |= 1 << k
			}
		}
		res = append(res, x)
	}
	return res
}

// Hash returns x^3 mod p and its bloom filter indices.
func (m *Model) Hash(x uint64) (*big.Int, []uint64) {
	y := utils.CubeMod(new(big.Int).SetUint64(x), new(big.Int).SetUint64(m.P))
	return y, utils.DecomposeWord(y, m.NumFilterHashes, m.BitsPerHash())
}

// Predict runs plain inference and returns one score per class.
func (m *Model) Predict(image [][]uint8) ([]uint64, error) {
	bits, err := m.Binarize(image)
	if err != nil {
		return nil, err
	}
	joint := m.JointInputs(bits)

	indices := make([][]uint64, len(joint))
	for i, x := range joint {
		_, indices[i] = m.Hash(x)
	}

	scores := make([]uint64, m.NumClasses)
	for c := 0; c < m.NumClasses; c++ {
		for i, idx := range indices {
			hit := true
			for _, h := range idx {
				hit = hit && m.BloomFilters[c][i][h]
			}
			if hit {
				scores[c]++
			}
		}
	}
	return scores, nil
}

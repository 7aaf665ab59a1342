package wnn

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"gnark-wnn/model"
)

type pixel struct {
	row, col int
}

// Chip wires the gadgets of one model into the prediction pipeline. The range
// and bloom tables are installed once by NewChip and shared by all gadgets.
type Chip struct {
	api   frontend.API
	model *model.Model

	rc         *RangeChecker
	comparator *Comparator
	composer   *BitComposer
	hasher     *Hasher
	bloom      *BloomFilter
	acc        *Accumulator

	// first range checked witness of each pixel's intensity
	intensities map[pixel]Checked
}

func NewChip(api frontend.API, m *model.Model) (*Chip, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no model", ErrConfiguration)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	cfg := ConfigFromModel(m)

	rc, err := NewRangeChecker(api, DefaultLimbBits)
	if err != nil {
		return nil, err
	}
	composer, err := NewBitComposer(api, m.NumFilterInputs)
	if err != nil {
		return nil, err
	}
	hasher, err := NewHasher(api, rc, cfg)
	if err != nil {
		return nil, err
	}
	bloom, err := NewBloomFilter(api, rc, cfg.Bloom, m.BloomFilters)
	if err != nil {
		return nil, err
	}

	return &Chip{
		api:         api,
		model:       m,
		rc:          rc,
		comparator:  NewComparator(api, rc),
		composer:    composer,
		hasher:      hasher,
		bloom:       bloom,
		acc:         NewAccumulator(api),
		intensities: make(map[pixel]Checked),
	}, nil
}

// Predict returns one score per class for image, indexed [row][col].
func (c *Chip) Predict(image [][]frontend.Variable) ([]frontend.Variable, error) {
	m := c.model
	if len(image) != m.Rows() {
		return nil, fmt.Errorf("%w: image has %d rows, expected %d", ErrConfiguration, len(image), m.Rows())
	}
	for i, row := range image {
		if len(row) != m.Cols() {
			return nil, fmt.Errorf("%w: image row %d has %d columns, expected %d", ErrConfiguration, i, len(row), m.Cols())
		}
	}

	bits := c.binarize(image)

	permuted := make([]frontend.Variable, len(bits))
	for k, idx := range m.InputOrder {
		permuted[k] = bits[idx]
	}

	nFilters, n := m.NumFilters(), m.NumFilterInputs
	hashes := make([]HashOutput, nFilters)
	for i := range hashes {
		joint, err := c.composer.Compose(permuted[i*n:(i+1)*n], LittleEndian)
		if err != nil {
			return nil, err
		}
		hashes[i] = c.hasher.Hash(joint)
	}

	scores := make([]frontend.Variable, m.NumClasses)
	for class := range scores {
		responses := make([]frontend.Variable, nFilters)
		for i, h := range hashes {
			r, err := c.bloom.Lookup(h.Windows, class*nFilters+i)
			if err != nil {
				return nil, err
			}
			responses[i] = r
		}
		scores[class] = c.acc.Accumulate(responses)
	}
	return scores, nil
}

func (c *Chip) binarize(image [][]frontend.Variable) []frontend.Variable {
	m := c.model
	res := make([]frontend.Variable, 0, m.NumInputBits())
	for b := 0; b < m.BitsPerInput; b++ {
		for i := 0; i < m.Rows(); i++ {
			for j := 0; j < m.Cols(); j++ {
				t := m.Thresholds[i][j][b]
				if t == 0 {
					res = append(res, 1)
					continue
				}
				// v >= t <=> v > t-1; t-1 is at most 255
				res = append(res, c.greaterThan(image[i][j], pixel{i, j}, uint8(t-1)))
			}
		}
	}

	// pixels only compared against zero thresholds still carry 8-bit intensities
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			if _, ok := c.intensities[pixel{i, j}]; !ok {
				c.rc.AssertInRange(image[i][j], 8)
			}
		}
	}
	return res
}

func (c *Chip) greaterThan(v frontend.Variable, key pixel, t uint8) frontend.Variable {
	if h, ok := c.intensities[key]; ok {
		return c.comparator.GreaterThanCopy(h, t)
	}
	h, bit := c.comparator.GreaterThan(v, t)
	c.intensities[key] = h
	return bit
}

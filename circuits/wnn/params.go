// Package wnn implements the constraint system proving weightless neural
// network inference: threshold binarization, bit composition, a cubic modular
// hash, bloom filter lookups and per-class response accumulation.
package wnn

import (
	"errors"
	"fmt"
	"math/bits"

	"gnark-wnn/model"
)

var ErrConfiguration = errors.New("wnn configuration error")

// Configurable is implemented by gadget configurations that can be checked
// against the native field before any constraint is emitted.
type Configurable interface {
	Validate(fieldBits int) error
}

// HashFunctionConfig parameterizes x -> x^3 mod P. Inputs are NBits wide and
// outputs are read as L bit words.
type HashFunctionConfig struct {
	P     uint64
	L     int
	NBits int
}

func (c HashFunctionConfig) Validate(fieldBits int) error {
	if c.P < 2 {
		return fmt.Errorf("%w: hash modulus must be at least 2, got %d", ErrConfiguration, c.P)
	}
	if c.L <= 0 || c.L > 63 {
		return fmt.Errorf("%w: hash output width %d out of range", ErrConfiguration, c.L)
	}
	if bits.Len64(c.P-1) > c.L {
		return fmt.Errorf("%w: 2^%d is smaller than p=%d", ErrConfiguration, c.L, c.P)
	}
	// x^3 = q*p + y must not wrap around the native modulus
	if c.NBits <= 0 || 3*c.NBits+2 >= fieldBits {
		return fmt.Errorf("%w: hash input width %d does not fit a %d bit field", ErrConfiguration, c.NBits, fieldBits)
	}
	return nil
}

// quotientBits bounds q = floor(x^3 / p) for x < 2^NBits.
func (c HashFunctionConfig) quotientBits() int {
	n := 3*c.NBits - bits.Len64(c.P) + 1
	if n < 0 {
		return 0
	}
	return n
}

type BloomFilterConfig struct {
	NHashes     int
	BitsPerHash int
}

func (c BloomFilterConfig) Validate(fieldBits int) error {
	if c.NHashes <= 0 {
		return fmt.Errorf("%w: number of hashes must be positive, got %d", ErrConfiguration, c.NHashes)
	}
	if c.BitsPerHash <= 0 || c.BitsPerHash > 30 || c.BitsPerHash >= fieldBits {
		return fmt.Errorf("%w: bits per hash %d out of range", ErrConfiguration, c.BitsPerHash)
	}
	return nil
}

func (c BloomFilterConfig) Entries() int {
	return 1 << c.BitsPerHash
}

type Config struct {
	Hash  HashFunctionConfig
	Bloom BloomFilterConfig
}

func (c Config) Validate(fieldBits int) error {
	if err := c.Hash.Validate(fieldBits); err != nil {
		return err
	}
	if err := c.Bloom.Validate(fieldBits); err != nil {
		return err
	}
	if c.Bloom.NHashes*c.Bloom.BitsPerHash > c.Hash.L {
		return fmt.Errorf("%w: %d hashes of %d bits exceed the %d bit hash output",
			ErrConfiguration, c.Bloom.NHashes, c.Bloom.BitsPerHash, c.Hash.L)
	}
	return nil
}

// ConfigFromModel derives the gadget parameters of a model.
func ConfigFromModel(m *model.Model) Config {
	return Config{
		Hash: HashFunctionConfig{
			P:     m.P,
			L:     m.OutputBits(),
			NBits: m.NumFilterInputs,
		},
		Bloom: BloomFilterConfig{
			NHashes:     m.NumFilterHashes,
			BitsPerHash: m.BitsPerHash(),
		},
	}
}

var (
	_ Configurable = HashFunctionConfig{}
	_ Configurable = BloomFilterConfig{}
	_ Configurable = Config{}
)

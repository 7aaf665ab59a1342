package wnn

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
)

// BloomFilter holds every class' filters flattened into a single table.
// Row c*filtersPerClass+i is filter i of class c.
type BloomFilter struct {
	api   frontend.API
	rc    *RangeChecker
	cfg   BloomFilterConfig
	table *logderivlookup.Table
	rows  int
}

// NewBloomFilter installs arrays, indexed [class][filter][entry], as a lookup table.
func NewBloomFilter(api frontend.API, rc *RangeChecker, cfg BloomFilterConfig, arrays [][][]bool) (*BloomFilter, error) {
	if err := cfg.Validate(api.Compiler().FieldBitLen()); err != nil {
		return nil, err
	}
	if len(arrays) == 0 || len(arrays[0]) == 0 {
		return nil, fmt.Errorf("%w: empty bloom filter arrays", ErrConfiguration)
	}
	entries := cfg.Entries()
	perClass := len(arrays[0])

	table := logderivlookup.New(api)
	rows := 0
	for c, filters := range arrays {
		if len(filters) != perClass {
			return nil, fmt.Errorf("%w: class %d has %d filters, expected %d", ErrConfiguration, c, len(filters), perClass)
		}
		for f, filter := range filters {
			if len(filter) != entries {
				return nil, fmt.Errorf("%w: filter [%d][%d] has %d entries, expected %d", ErrConfiguration, c, f, len(filter), entries)
			}
			for _, e := range filter {
				if e {
					table.Insert(1)
				} else {
					table.Insert(0)
				}
			}
			rows++
		}
	}
	return &BloomFilter{api: api, rc: rc, cfg: cfg, table: table, rows: rows}, nil
}

func (bf *BloomFilter) Rows() int {
	return bf.rows
}

// LookupEntry returns table[row][h]. h outside [0, entries) is unsatisfiable.
func (bf *BloomFilter) LookupEntry(h frontend.Variable, row int) (frontend.Variable, error) {
	if row < 0 || row >= bf.rows {
		return nil, fmt.Errorf("%w: bloom filter row %d out of range [0, %d)", ErrConfiguration, row, bf.rows)
	}
	entries := bf.cfg.Entries()
	bf.rc.AssertLessThan(h, uint64(entries))
	return bf.table.Lookup(bf.api.Add(h, row*entries))[0], nil
}

// Lookup returns 1 iff every hash window hits a set entry of the row.
func (bf *BloomFilter) Lookup(windows []frontend.Variable, row int) (frontend.Variable, error) {
	if len(windows) != bf.cfg.NHashes {
		return nil, fmt.Errorf("%w: expected %d hash windows, got %d", ErrConfiguration, bf.cfg.NHashes, len(windows))
	}
	var res frontend.Variable = 1
	for _, w := range windows {
		e, err := bf.LookupEntry(w, row)
		if err != nil {
			return nil, err
		}
		res = bf.api.Mul(res, e)
	}
	return res, nil
}

package wnn

import (
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"gnark-wnn/model"
)

func TestCircuitTwoFilters(t *testing.T) {
	assert := test.NewAssert(t)
	m := model.TestModel()
	img := model.TestImage()

	assert.CheckCircuit(NewCircuit(m),
		test.WithValidAssignment(NewAssignment(img, []uint64{1, 2})),
		test.WithInvalidAssignment(NewAssignment(img, []uint64{1, 1})),
		test.WithInvalidAssignment(NewAssignment(img, []uint64{2, 2})),
		test.WithBackends(backend.GROTH16),
		test.WithCurves(ecc.BN254),
		test.NoFuzzing(),
	)
}

func TestCircuitZeroThreshold(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	params := model.Params{
		NumClasses:       2,
		NumInputs:        6,
		BitsPerInput:     2,
		NumFilterInputs:  6,
		NumFilterEntries: 64,
		NumFilterHashes:  2,
		P:                model.TestP,
	}
	thresholds := make([][][]uint16, 2)
	for i := range thresholds {
		thresholds[i] = make([][]uint16, 3)
		for j := range thresholds[i] {
			thresholds[i][j] = []uint16{0, 128}
		}
	}
	bloom := make([][][]bool, 2)
	for c := range bloom {
		bloom[c] = [][]bool{make([]bool, 64), make([]bool, 64)}
	}
	order := make([]uint64, params.NumInputBits())
	for i := range order {
		order[i] = uint64(i)
	}

	m := &model.Model{Params: params, BloomFilters: bloom, Thresholds: thresholds, InputOrder: order}
	// the first filter sees the all-ones plane 0, the second the all-zero plane 1
	_, idx := m.Hash(1<<6 - 1)
	for _, h := range idx {
		m.BloomFilters[0][0][h] = true
	}
	require.NoError(t, m.Validate())

	img := [][]uint8{{0, 0, 0}, {0, 0, 0}}
	bits, err := m.Binarize(img)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.True(t, bits[i])
		require.False(t, bits[6+i])
	}
	scores, err := m.Predict(img)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 0}, scores)

	assert.NoError(test.IsSolved(NewCircuit(m), NewAssignment(img, scores), field))
	assert.Error(test.IsSolved(NewCircuit(m), NewAssignment(img, []uint64{0, 0}), field))

	// plane 0 ignores intensities, plane 1 does not
	bright := [][]uint8{{0, 0, 0}, {0, 0, 255}}
	scores, err = m.Predict(bright)
	require.NoError(t, err)
	assert.NoError(test.IsSolved(NewCircuit(m), NewAssignment(bright, scores), field))
}

func randomModel(rnd *rand.Rand) *model.Model {
	params := model.Params{
		NumClasses:       3,
		NumInputs:        16,
		BitsPerInput:     3,
		NumFilterInputs:  12,
		NumFilterEntries: 64,
		NumFilterHashes:  2,
		P:                model.TestP,
	}
	thresholds := make([][][]uint16, 4)
	for i := range thresholds {
		thresholds[i] = make([][]uint16, 4)
		for j := range thresholds[i] {
			thresholds[i][j] = make([]uint16, params.BitsPerInput)
			for b := range thresholds[i][j] {
				switch rnd.Intn(8) {
				case 0:
					thresholds[i][j][b] = 0
				case 1:
					thresholds[i][j][b] = model.MaxThreshold
				default:
					thresholds[i][j][b] = uint16(rnd.Intn(256))
				}
			}
		}
	}
	order := make([]uint64, params.NumInputBits())
	for k, v := range rnd.Perm(len(order)) {
		order[k] = uint64(v)
	}
	bloom := randomArrays(rnd, params.NumClasses, params.NumFilters(), params.NumFilterEntries)

	m, err := model.New(params, bloom, thresholds, order)
	if err != nil {
		panic(err)
	}
	return m
}

func TestCircuitMatchesReference(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	for seed := int64(1); seed <= 3; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		m := randomModel(rnd)
		img := make([][]uint8, m.Rows())
		for i := range img {
			img[i] = make([]uint8, m.Cols())
			rnd.Read(img[i])
		}

		scores, err := m.Predict(img)
		require.NoError(t, err)

		assert.NoError(test.IsSolved(NewCircuit(m), NewAssignment(img, scores), field), "seed=%d", seed)

		wrong := append([]uint64(nil), scores...)
		wrong[0]++
		assert.Error(test.IsSolved(NewCircuit(m), NewAssignment(img, wrong), field), "seed=%d", seed)
	}
}

func TestCircuitConfigurationErrors(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	m := model.TestModel()
	m.InputOrder[1] = 0
	_, err := frontend.Compile(field, r1cs.NewBuilder, NewCircuit(m))
	assert.Error(err)
	assert.Contains(err.Error(), "input order")

	m = model.TestModel()
	circuit := NewCircuit(m)
	circuit.Image = circuit.Image[:4]
	_, err = frontend.Compile(field, r1cs.NewBuilder, circuit)
	assert.Error(err)
	assert.Contains(err.Error(), "rows")

	m = model.TestModel()
	circuit = NewCircuit(m)
	circuit.Scores = circuit.Scores[:1]
	_, err = frontend.Compile(field, r1cs.NewBuilder, circuit)
	assert.Error(err)
	assert.Contains(err.Error(), "scores")
}

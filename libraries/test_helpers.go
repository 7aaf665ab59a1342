package libraries

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/consensys/gnark/test"

	prover "gnark-wnn/libraries/prover/impl"
	verifier "gnark-wnn/libraries/verifier/impl"
	"gnark-wnn/model"
	"gnark-wnn/zkbackend"
)

type BackendConfig struct {
	Name    string
	Backend uint8

	once      sync.Once
	artifacts *zkbackend.Artifacts
	model     []byte
	err       error
}

var BackendConfigs = map[string]*BackendConfig{
	"groth16": {
		Name:    "groth16",
		Backend: prover.GROTH16,
	},
	"plonk": {
		Name:    "plonk",
		Backend: prover.PLONK,
	},
}

// Artifacts compiles the fixture model and runs setup once per backend.
func (c *BackendConfig) Artifacts(t testing.TB) (*zkbackend.Artifacts, []byte) {
	c.once.Do(func() {
		m := model.TestModel()
		c.model, c.err = model.Marshal(m)
		if c.err != nil {
			return
		}
		c.artifacts, c.err = zkbackend.Generate(c.Backend, m)
	})
	if c.err != nil {
		t.Fatal(c.err)
	}
	return c.artifacts, c.model
}

func InitBackend(t testing.TB, config *BackendConfig) bool {
	a, m := config.Artifacts(t)
	return prover.InitAlgorithm(config.Backend, a.ManifestBytes(), a.ProvingKey, a.CCS, m) &&
		verifier.InitVerifier(config.Backend, a.ManifestBytes(), a.VerifyingKey)
}

// RunFullTest proves the fixture image through the JSON interface and checks
// the proof with the verifier library.
func RunFullTest(t *testing.T, config *BackendConfig) {
	assert := test.NewAssert(t)

	assert.True(InitBackend(t, config))

	res := prover.ProveImage(config.Backend, model.TestImage())
	assert.True(len(res) > 0)

	var outParams *prover.OutputParams
	assert.NoError(json.Unmarshal(res, &outParams))
	assert.Equal(config.Name, outParams.Backend)
	assert.Equal([]uint64{1, 2}, outParams.PublicSignals)

	verifyTest(t, config, outParams)
}

func verifyTest(t *testing.T, config *BackendConfig, outParams *prover.OutputParams) {
	assert := test.NewAssert(t)

	// the prover output is a valid verification request
	out, err := json.Marshal(outParams)
	assert.NoError(err)
	assert.True(verifier.Verify(out))

	assert.True(verifier.VerifyScores(config.Backend, outParams.Proof, []uint64{1, 2}))
	assert.False(verifier.VerifyScores(config.Backend, outParams.Proof, []uint64{2, 2}))
	assert.False(verifier.VerifyScores(config.Backend, outParams.Proof, []uint64{1, 2, 0}))
	assert.False(verifier.VerifyScores(config.Backend, outParams.Proof[:len(outParams.Proof)/2], []uint64{1, 2}))
}

// RunBenchmark measures proving time for the fixture image.
func RunBenchmark(b *testing.B, config *BackendConfig) {
	if !InitBackend(b, config) {
		b.Fatal("init failed")
	}
	image := model.TestImage()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prover.ProveImage(config.Backend, image)
	}
}

package libraries

import (
	"testing"

	"github.com/consensys/gnark/test"

	prover "gnark-wnn/libraries/prover/impl"
	verifier "gnark-wnn/libraries/verifier/impl"
)

func TestPanic(t *testing.T) {
	assert := test.NewAssert(t)

	assert.Panics(func() {
		prover.Prove([]byte(`{"backend":"marlin","pixels":"AAAA"}`))
	})
	assert.Panics(func() {
		prover.Prove([]byte(`{"backend":`))
	})

	assert.False(verifier.Verify([]byte(`{"backend":"groth16"}`)))
	assert.False(verifier.Verify([]byte(`{"backend":"marlin","proof":"AAAA","publicSignals":[1,2]}`)))
	assert.False(verifier.Verify([]byte(`not json`)))
}

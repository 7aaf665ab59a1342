package impl

import (
	"encoding/json"

	"gnark-wnn/circuits/wnn"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

type Verifier interface {
	Verify(proof []byte, publicSignals json.RawMessage) bool
}

type WNNVerifier struct {
	backend    uint8
	vk         zkbackend.VerifyingKey
	numClasses int
}

func (wv *WNNVerifier) Verify(proof []byte, publicSignals json.RawMessage) bool {
	log := utils.Logger()

	var scores []uint64
	if err := json.Unmarshal(publicSignals, &scores); err != nil {
		log.Error().Err(err).Msg("failed to parse public signals")
		return false
	}
	if len(scores) != wv.numClasses {
		log.Error().Msgf("public signals must have %d scores, not %d", wv.numClasses, len(scores))
		return false
	}

	witness := &wnn.Circuit{Scores: utils.Uint64sToVariables(scores)}
	err := zkbackend.Verify(wv.backend, wv.vk, proof, witness)
	if err != nil {
		log.Error().Err(err).Msg("proof rejected")
	}
	return err == nil
}

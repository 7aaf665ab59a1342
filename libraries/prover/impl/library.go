package impl

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/std"

	"gnark-wnn/model"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

const (
	GROTH16 = zkbackend.GROTH16
	PLONK   = zkbackend.PLONK
)

var provers = map[string]*ProverParams{
	"groth16": {
		Prover: &WNNProver{backend: GROTH16},
	},
	"plonk": {
		Prover: &WNNProver{backend: PLONK},
	},
}

type OutputParams struct {
	Backend       string   `json:"backend"`
	Proof         []uint8  `json:"proof"`
	PublicSignals []uint64 `json:"publicSignals"`
}

type ProverParams struct {
	Prover
	KeyHash     string
	CircuitHash string
	initDone    bool
	initLock    sync.Mutex
}

func init() {
	logger.Disable()
	std.RegisterHints()
}

// InitAlgorithm loads the proving artifacts of one backend. The proving key,
// constraint system and model must match the hashes pinned in manifest.
func InitAlgorithm(backendID uint8, manifestData, provingKey, ccsData, modelData []byte) (res bool) {
	log := utils.Logger()
	defer func() {
		if err := recover(); err != nil {
			log.Error().Interface("panic", err).Msg("prover init failed")
			res = false
		}
	}()

	name, err := zkbackend.Name(backendID)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}
	proverParams := provers[name]
	proverParams.initLock.Lock()
	defer proverParams.initLock.Unlock()
	if proverParams.initDone {
		return true
	}

	manifest, err := zkbackend.ParseManifest(manifestData)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}
	if manifest.Backend != name {
		log.Error().Str("expected", name).Str("got", manifest.Backend).Msg("manifest backend mismatch")
		return false
	}

	if !hashMatches(provingKey, manifest.KeyHash) {
		log.Error().Str("expected", manifest.KeyHash).Str("got", zkbackend.HashBytes(provingKey)).Msg("incorrect key hash")
		return false
	}
	if !hashMatches(ccsData, manifest.CircuitHash) {
		log.Error().Str("expected", manifest.CircuitHash).Str("got", zkbackend.HashBytes(ccsData)).Msg("circuit hash mismatch")
		return false
	}

	m, err := model.Parse(modelData)
	if err != nil {
		log.Error().Err(err).Msg("error reading model")
		return false
	}
	digest, err := zkbackend.ModelDigest(m)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}
	if subtle.ConstantTimeCompare([]byte(digest), []byte(manifest.ModelDigest)) != 1 {
		log.Error().Str("expected", manifest.ModelDigest).Str("got", digest).Msg("model digest mismatch")
		return false
	}

	pkey, err := zkbackend.ReadProvingKey(backendID, provingKey)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}
	ccs, err := zkbackend.ReadCS(backendID, ccsData)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}

	proverParams.SetParams(ccs, pkey, m)
	proverParams.KeyHash = manifest.KeyHash
	proverParams.CircuitHash = manifest.CircuitHash
	proverParams.initDone = true
	log.Info().Str("backend", name).Msg("initialized")
	return true
}

// Prove returns the JSON encoded OutputParams for the JSON encoded InputParams.
// It panics on any error.
func Prove(params []byte) []byte {
	var inputParams *InputParams
	err := json.Unmarshal(params, &inputParams)
	if err != nil {
		panic(err)
	}
	if inputParams == nil {
		panic("empty proving request")
	}

	prover, ok := provers[inputParams.Backend]
	if !ok {
		panic("could not find prover for " + inputParams.Backend)
	}
	if !prover.initialized() {
		panic(fmt.Sprintf("proving params are not initialized for backend: %s", inputParams.Backend))
	}

	proof, scores := prover.Prove(inputParams)
	res, er := json.Marshal(&OutputParams{
		Backend:       inputParams.Backend,
		Proof:         proof,
		PublicSignals: scores,
	})
	if er != nil {
		panic(er)
	}
	return res
}

// ProveImage proves inference on a row-major image with the given backend.
func ProveImage(backendID uint8, image [][]uint8) []byte {
	name, err := zkbackend.Name(backendID)
	if err != nil {
		panic(err)
	}
	var pixels []uint8
	for _, row := range image {
		pixels = append(pixels, row...)
	}
	buf, err := json.Marshal(&InputParams{Backend: name, Pixels: pixels})
	if err != nil {
		panic(err)
	}
	return Prove(buf)
}

func (p *ProverParams) initialized() bool {
	p.initLock.Lock()
	defer p.initLock.Unlock()
	return p.initDone
}

func hashMatches(data []byte, expected string) bool {
	inHash := mustHex(zkbackend.HashBytes(data))
	return subtle.ConstantTimeCompare(inHash, mustHex(expected)) == 1
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

package impl

import (
	"crypto/subtle"
	"encoding/json"
	"sync"

	"github.com/consensys/gnark/logger"

	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

type InputVerifyParams struct {
	Backend       string          `json:"backend"`
	Proof         []uint8         `json:"proof"`
	PublicSignals json.RawMessage `json:"publicSignals"`
}

var (
	verifiers     = make(map[string]Verifier)
	verifiersLock sync.RWMutex
)

func init() {
	logger.Disable()
}

// InitVerifier installs the verifying key of one backend. The key must match
// the hash in manifest. Both come from the caller, so this only catches a key
// that does not belong to the manifest; use InitVerifierPinned to trust a
// manifest fixed in advance.
func InitVerifier(backendID uint8, manifestData, vkData []byte) (res bool) {
	log := utils.Logger()
	defer func() {
		if err := recover(); err != nil {
			log.Error().Interface("panic", err).Msg("verifier init failed")
			res = false
		}
	}()

	name, err := zkbackend.Name(backendID)
	if err != nil {
		log.Error().Err(err).Send()
		return false
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
	inHash := zkbackend.HashBytes(vkData)
	if subtle.ConstantTimeCompare([]byte(inHash), []byte(manifest.VerifyingKeyHash)) != 1 {
		log.Error().Str("expected", manifest.VerifyingKeyHash).Str("got", inHash).Msg("verifying key hash mismatch")
		return false
	}

	vk, err := zkbackend.ReadVerifyingKey(backendID, vkData)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}

	verifiersLock.Lock()
	defer verifiersLock.Unlock()
	verifiers[name] = &WNNVerifier{backend: backendID, vk: vk, numClasses: manifest.NumClasses}
	log.Info().Str("backend", name).Msg("initialized verifier")
	return true
}

// InitVerifierPinned is InitVerifier for a manifest whose sha256 hash is known
// ahead of time, as distributed with the model.
func InitVerifierPinned(backendID uint8, manifestHash string, manifestData, vkData []byte) bool {
	inHash := zkbackend.HashBytes(manifestData)
	if subtle.ConstantTimeCompare([]byte(inHash), []byte(manifestHash)) != 1 {
		utils.Logger().Error().Str("expected", manifestHash).Str("got", inHash).Msg("manifest hash mismatch")
		return false
	}
	return InitVerifier(backendID, manifestData, vkData)
}

func Verify(params []byte) (res bool) {
	log := utils.Logger()
	defer func() {
		if err := recover(); err != nil {
			log.Error().Interface("panic", err).Send()
			res = false
		}
	}()

	var inputParams *InputVerifyParams
	err := json.Unmarshal(params, &inputParams)
	if err != nil {
		log.Error().Err(err).Send()
		return false
	}
	if inputParams == nil {
		return false
	}

	verifiersLock.RLock()
	verifier, ok := verifiers[inputParams.Backend]
	verifiersLock.RUnlock()
	if ok {
		return verifier.Verify(inputParams.Proof, inputParams.PublicSignals)
	}
	return false
}

// VerifyScores checks a proof that the private image scores as given.
func VerifyScores(backendID uint8, proof []byte, scores []uint64) bool {
	name, err := zkbackend.Name(backendID)
	if err != nil {
		return false
	}
	signals, err := json.Marshal(scores)
	if err != nil {
		return false
	}
	buf, err := json.Marshal(&InputVerifyParams{
		Backend:       name,
		Proof:         proof,
		PublicSignals: signals,
	})
	if err != nil {
		return false
	}
	return Verify(buf)
}

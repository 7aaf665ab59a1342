package impl

import (
	"sync"

	"github.com/consensys/gnark/constraint"

	"gnark-wnn/circuits/wnn"
	"gnark-wnn/model"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

type InputParams struct {
	Backend string `json:"backend"`
	// Pixels holds the image intensities row by row.
	Pixels []uint8 `json:"pixels"`
}

type Prover interface {
	SetParams(ccs constraint.ConstraintSystem, pk zkbackend.ProvingKey, m *model.Model)
	Prove(params *InputParams) (proof []byte, scores []uint64)
}

type WNNProver struct {
	backend uint8
	ccs     constraint.ConstraintSystem
	pk      zkbackend.ProvingKey
	model   *model.Model
	lock    sync.Mutex
}

func (wp *WNNProver) SetParams(ccs constraint.ConstraintSystem, pk zkbackend.ProvingKey, m *model.Model) {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	wp.ccs = ccs
	wp.pk = pk
	wp.model = m
}

func (wp *WNNProver) Prove(params *InputParams) (proof []byte, scores []uint64) {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	log := utils.Logger()

	rows, cols := wp.model.Rows(), wp.model.Cols()
	if len(params.Pixels) != rows*cols {
		log.Panic().Msgf("image must have %d pixels: %d", rows*cols, len(params.Pixels))
	}
	image := make([][]uint8, rows)
	for i := range image {
		image[i] = params.Pixels[i*cols : (i+1)*cols]
	}

	scores, err := wp.model.Predict(image)
	if err != nil {
		panic(err)
	}
	proof, err = zkbackend.Prove(wp.backend, wp.ccs, wp.pk, wnn.NewAssignment(image, scores))
	if err != nil {
		panic(err)
	}
	log.Debug().Uints64("scores", scores).Int("proofLen", len(proof)).Msg("generated proof")
	return proof, scores
}

package wnn

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"gnark-wnn/model"
	"gnark-wnn/utils"
)

// Circuit proves that Scores are the model's per-class responses on a private Image.
type Circuit struct {
	Image  [][]frontend.Variable
	Scores []frontend.Variable `gnark:",public"`

	Model *model.Model `gnark:"-"`
}

// NewCircuit allocates the circuit shape for m, ready to be compiled.
func NewCircuit(m *model.Model) *Circuit {
	image := make([][]frontend.Variable, m.Rows())
	for i := range image {
		image[i] = make([]frontend.Variable, m.Cols())
	}
	return &Circuit{
		Image:  image,
		Scores: make([]frontend.Variable, m.NumClasses),
		Model:  m,
	}
}

func NewAssignment(image [][]uint8, scores []uint64) *Circuit {
	return &Circuit{
		Image:  utils.BytesToVariables(image),
		Scores: utils.Uint64sToVariables(scores),
	}
}

func (c *Circuit) Define(api frontend.API) error {
	chip, err := NewChip(api, c.Model)
	if err != nil {
		return err
	}
	scores, err := chip.Predict(c.Image)
	if err != nil {
		return err
	}
	if len(scores) != len(c.Scores) {
		return fmt.Errorf("%w: circuit exposes %d scores, model has %d classes", ErrConfiguration, len(c.Scores), len(scores))
	}
	for i := range scores {
		api.AssertIsEqual(c.Scores[i], scores[i])
	}
	return nil
}

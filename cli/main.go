package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"filippo.io/age"
	"github.com/urfave/cli/v2"

	prover "gnark-wnn/libraries/prover/impl"
	verifier "gnark-wnn/libraries/verifier/impl"
	"gnark-wnn/model"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

var (
	modelFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "Path to the model parameter bundle (JSON)",
		Required: true,
	}
	imageFlag = &cli.StringFlag{
		Name:     "image",
		Usage:    "Path to the PNG image, optionally age-encrypted",
		Required: true,
	}
	identityFlag = &cli.StringFlag{
		Name:  "identity",
		Usage: "Optional age identity file used to decrypt the image",
	}
	keysFlag = &cli.StringFlag{
		Name:  "keys",
		Usage: "Directory holding ccs, keys and manifests",
		Value: "../resources/gnark",
	}
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "Proving backend: groth16 or plonk",
		Value: "groth16",
	}
	proofFlag = &cli.StringFlag{
		Name:  "proof",
		Usage: "Path of the proof file",
		Value: "proof.json",
	}
)

func main() {
	app := &cli.App{
		Name:  "wnn",
		Usage: "Proves and verifies weightless neural network inference on private images",
		Commands: []*cli.Command{
			{
				Name:   "predict",
				Usage:  "Prints the class responses of the model for an image",
				Flags:  []cli.Flag{modelFlag, imageFlag, identityFlag},
				Action: predict,
			},
			{
				Name:   "prove",
				Usage:  "Proves the class responses of an image without revealing it",
				Flags:  []cli.Flag{modelFlag, imageFlag, identityFlag, keysFlag, backendFlag, proofFlag},
				Action: prove,
			},
			{
				Name:   "verify",
				Usage:  "Verifies a proof file",
				Flags:  []cli.Flag{keysFlag, backendFlag, proofFlag},
				Action: verify,
			},
			{
				Name:  "encrypt-image",
				Usage: "Encrypts an image to an age recipient",
				Flags: []cli.Flag{
					imageFlag,
					&cli.StringFlag{Name: "recipient", Usage: "age X25519 recipient", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Output path", Required: true},
				},
				Action: encryptImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		utils.Logger().Fatal().Err(err).Send()
	}
}

func loadImage(c *cli.Context, m *model.Model) ([][]uint8, error) {
	path := c.String("identity")
	if path == "" {
		return m.LoadImage(c.String("image"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file: %w", err)
	}
	return m.LoadImage(c.String("image"), identities...)
}

func predict(c *cli.Context) error {
	m, err := model.Load(c.String("model"))
	if err != nil {
		return err
	}
	image, err := loadImage(c, m)
	if err != nil {
		return err
	}
	scores, err := m.Predict(image)
	if err != nil {
		return err
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	event := utils.Logger().Info().Uints64("scores", scores).Int("class", best)
	if label, ok := model.ParseLabel(c.String("image")); ok {
		event = event.Int("label", label).Bool("correct", label == best)
	}
	event.Msg("prediction")
	return nil
}

func prove(c *cli.Context) error {
	id, err := zkbackend.Parse(c.String("backend"))
	if err != nil {
		return err
	}
	modelData, err := os.ReadFile(c.String("model"))
	if err != nil {
		return err
	}
	m, err := model.Parse(modelData)
	if err != nil {
		return err
	}
	image, err := loadImage(c, m)
	if err != nil {
		return err
	}

	a, err := zkbackend.LoadArtifacts(c.String("keys"), c.String("backend"), true)
	if err != nil {
		return err
	}
	if !prover.InitAlgorithm(id, a.ManifestBytes(), a.ProvingKey, a.CCS, modelData) {
		return errors.New("artifacts do not match the model")
	}

	res, err := proveImage(id, image)
	if err != nil {
		return err
	}
	if err = os.WriteFile(c.String("proof"), res, 0o644); err != nil {
		return err
	}

	var out prover.OutputParams
	if err = json.Unmarshal(res, &out); err != nil {
		return err
	}
	utils.Logger().Info().Uints64("scores", out.PublicSignals).Str("proof", c.String("proof")).Msg("proof written")
	return nil
}

// proveImage turns the prover library's panics into errors.
func proveImage(id uint8, image [][]uint8) (res []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("proving failed: %v", r)
		}
	}()
	return prover.ProveImage(id, image), nil
}

func verify(c *cli.Context) error {
	id, err := zkbackend.Parse(c.String("backend"))
	if err != nil {
		return err
	}
	a, err := zkbackend.LoadArtifacts(c.String("keys"), c.String("backend"), false)
	if err != nil {
		return err
	}
	if !verifier.InitVerifier(id, a.ManifestBytes(), a.VerifyingKey) {
		return errors.New("invalid verifying key")
	}
	proof, err := os.ReadFile(c.String("proof"))
	if err != nil {
		return err
	}
	if !verifier.Verify(proof) {
		return errors.New("proof rejected")
	}
	utils.Logger().Info().Msg("proof verified")
	return nil
}

func encryptImage(c *cli.Context) error {
	recipient, err := age.ParseX25519Recipient(c.String("recipient"))
	if err != nil {
		return err
	}
	in, err := os.Open(c.String("image"))
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(c.String("out"))
	if err != nil {
		return err
	}
	if err = model.EncryptImage(out, in, recipient); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

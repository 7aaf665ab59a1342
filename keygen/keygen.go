package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"gnark-wnn/model"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

const OUT_DIR = "../resources/gnark"

func main() {
	app := &cli.App{
		Name:  "keygen",
		Usage: "Compiles the WNN circuit of a model and generates proving artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "model",
				Usage:    "Path to the model parameter bundle (JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Proving backend: groth16, plonk or all",
				Value: "all",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Directory to write ccs, keys and manifests to",
				Value: OUT_DIR,
			},
		},
		Action: func(c *cli.Context) error {
			m, err := model.Load(c.String("model"))
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}

			backends, err := selectBackends(c.String("backend"))
			if err != nil {
				return err
			}
			for _, id := range backends {
				if err = generateCircuitFiles(id, m, c.String("out")); err != nil {
					return err
				}
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		utils.Logger().Fatal().Err(err).Send()
	}
}

func selectBackends(name string) ([]uint8, error) {
	if name == "all" {
		return []uint8{zkbackend.GROTH16, zkbackend.PLONK}, nil
	}
	id, err := zkbackend.Parse(name)
	if err != nil {
		return nil, err
	}
	return []uint8{id}, nil
}

func generateCircuitFiles(id uint8, m *model.Model, dir string) error {
	log := utils.Logger()

	t := time.Now()
	a, err := zkbackend.Generate(id, m)
	if err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(t)).Str("backend", a.Manifest.Backend).Msg("setup done")

	if err = a.Save(dir); err != nil {
		return err
	}
	log.Info().
		Str("dir", dir).
		Str("key_hash", a.Manifest.KeyHash).
		Str("circuit_hash", a.Manifest.CircuitHash).
		Str("model_digest", a.Manifest.ModelDigest).
		Msg("generated circuit files")
	return nil
}

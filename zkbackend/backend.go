// Package zkbackend compiles the WNN circuit and drives the gnark proving
// backends (Groth16 and PLONK over BN254).
package zkbackend

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"

	"gnark-wnn/circuits/wnn"
	"gnark-wnn/model"
)

const (
	GROTH16 = 0
	PLONK   = 1
)

var backendNames = map[uint8]string{
	GROTH16: "groth16",
	PLONK:   "plonk",
}

var ErrUnknownBackend = errors.New("unknown proving backend")

type ProvingKey interface {
	io.WriterTo
	io.ReaderFrom
}

type VerifyingKey interface {
	io.WriterTo
	io.ReaderFrom
}

func Name(id uint8) (string, error) {
	if name, ok := backendNames[id]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownBackend, id)
}

func Parse(name string) (uint8, error) {
	for id, n := range backendNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Compile builds the constraint system of m's circuit for the given backend.
func Compile(id uint8, m *model.Model) (constraint.ConstraintSystem, error) {
	circuit := wnn.NewCircuit(m)
	switch id {
	case GROTH16:
		return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	case PLONK:
		return frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
}

// Setup runs the backend's key generation. The PLONK SRS comes from
// unsafekzg and is only suitable for testing and local deployments.
func Setup(id uint8, ccs constraint.ConstraintSystem) (ProvingKey, VerifyingKey, error) {
	switch id {
	case GROTH16:
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			return nil, nil, err
		}
		return pk, vk, nil
	case PLONK:
		srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
		if err != nil {
			return nil, nil, err
		}
		pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
		if err != nil {
			return nil, nil, err
		}
		return pk, vk, nil
	}
	return nil, nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
}

func ReadCS(id uint8, data []byte) (constraint.ConstraintSystem, error) {
	var ccs constraint.ConstraintSystem
	switch id {
	case GROTH16:
		ccs = groth16.NewCS(ecc.BN254)
	case PLONK:
		ccs = plonk.NewCS(ecc.BN254)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
	}
	if _, err := ccs.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading constraint system: %w", err)
	}
	return ccs, nil
}

func ReadProvingKey(id uint8, data []byte) (ProvingKey, error) {
	var pk ProvingKey
	switch id {
	case GROTH16:
		pk = groth16.NewProvingKey(ecc.BN254)
	case PLONK:
		pk = plonk.NewProvingKey(ecc.BN254)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
	}
	if _, err := pk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading proving key: %w", err)
	}
	return pk, nil
}

func ReadVerifyingKey(id uint8, data []byte) (VerifyingKey, error) {
	var vk VerifyingKey
	switch id {
	case GROTH16:
		vk = groth16.NewVerifyingKey(ecc.BN254)
	case PLONK:
		vk = plonk.NewVerifyingKey(ecc.BN254)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
	}
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading verifying key: %w", err)
	}
	return vk, nil
}

// Prove solves the circuit on a full assignment and returns the serialized proof.
func Prove(id uint8, ccs constraint.ConstraintSystem, pk ProvingKey, assignment frontend.Circuit) ([]byte, error) {
	wtns, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	var proof io.WriterTo
	switch id {
	case GROTH16:
		gpk, ok := pk.(groth16.ProvingKey)
		if !ok {
			return nil, fmt.Errorf("proving key is not a groth16 key")
		}
		proof, err = groth16.Prove(ccs, gpk, wtns)
	case PLONK:
		ppk, ok := pk.(plonk.ProvingKey)
		if !ok {
			return nil, fmt.Errorf("proving key is not a plonk key")
		}
		proof, err = plonk.Prove(ccs, ppk, wtns)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, id)
	}
	if err != nil {
		return nil, err
	}
	return Marshal(proof)
}

// Verify checks a serialized proof against the public part of assignment.
func Verify(id uint8, vk VerifyingKey, proof []byte, assignment frontend.Circuit) error {
	wtns, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}

	switch id {
	case GROTH16:
		gvk, ok := vk.(groth16.VerifyingKey)
		if !ok {
			return fmt.Errorf("verifying key is not a groth16 key")
		}
		gProof := groth16.NewProof(ecc.BN254)
		if _, err = gProof.ReadFrom(bytes.NewReader(proof)); err != nil {
			return err
		}
		return groth16.Verify(gProof, gvk, wtns)
	case PLONK:
		pvk, ok := vk.(plonk.VerifyingKey)
		if !ok {
			return fmt.Errorf("verifying key is not a plonk key")
		}
		pProof := plonk.NewProof(ecc.BN254)
		if _, err = pProof.ReadFrom(bytes.NewReader(proof)); err != nil {
			return err
		}
		return plonk.Verify(pProof, pvk, wtns)
	}
	return fmt.Errorf("%w: %d", ErrUnknownBackend, id)
}

func Marshal(w io.WriterTo) ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := w.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HashBytes returns the hex encoded sha256 of b.
func HashBytes(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}
